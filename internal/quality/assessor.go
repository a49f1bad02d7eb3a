// Package quality measures blur, glare and contrast on decoded document
// images. It only measures; nothing here corrects or enhances an image.
package quality

import (
	"fmt"
	"image"
	"image/draw"
	"strings"
)

// Config holds the assessment thresholds. Two call sites use different blur
// thresholds: the event pipeline annotates results (default 100) while the
// interactive upload gate rejects outright and runs stricter (500).
type Config struct {
	BlurThreshold       float64
	GlareIntensity      int
	GlareRatioThreshold float64
	ContrastThreshold   int
}

// DefaultConfig returns the pipeline-side defaults.
func DefaultConfig() Config {
	return Config{
		BlurThreshold:       100,
		GlareIntensity:      250,
		GlareRatioThreshold: 0.05,
		ContrastThreshold:   50,
	}
}

// Report holds the measurements for one image.
type Report struct {
	BlurScore     float64
	IsBlurry      bool
	GlareRatio    float64
	HasGlare      bool
	ContrastRange int
	IsLowContrast bool
}

// OK reports whether no issue was detected.
func (r Report) OK() bool {
	return !r.IsBlurry && !r.HasGlare && !r.IsLowContrast
}

// Failures lists each failing check with its measured value, for the upload
// surface's rejection message.
func (r Report) Failures(cfg Config) []string {
	var out []string
	if r.IsBlurry {
		out = append(out, fmt.Sprintf("image floue (nettete %.1f, minimum %.1f)", r.BlurScore, cfg.BlurThreshold))
	}
	if r.HasGlare {
		out = append(out, fmt.Sprintf("reflets detectes (%.1f%% de pixels satures, maximum %.1f%%)", r.GlareRatio*100, cfg.GlareRatioThreshold*100))
	}
	if r.IsLowContrast {
		out = append(out, fmt.Sprintf("contraste insuffisant (etendue %d, minimum %d)", r.ContrastRange, cfg.ContrastThreshold))
	}
	return out
}

// Notes returns the human-readable fragment merged into persisted results.
// Empty when no issue was detected.
func (r Report) Notes(cfg Config) string {
	return strings.Join(r.Failures(cfg), "; ")
}

// Assessor runs the three independent checks. Each check is defensive: a
// degenerate image yields the "no issue detected" default instead of an
// error.
type Assessor struct {
	cfg Config
}

func NewAssessor(cfg Config) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess measures img and applies the configured thresholds.
func (a *Assessor) Assess(img image.Image) Report {
	gray := toGray(img)
	var r Report

	if score, ok := blurScore(gray); ok {
		r.BlurScore = score
		r.IsBlurry = score < a.cfg.BlurThreshold
	}
	if ratio, ok := glareRatio(gray, a.cfg.GlareIntensity); ok {
		r.GlareRatio = ratio
		r.HasGlare = ratio > a.cfg.GlareRatioThreshold
	}
	if rng, ok := contrastRange(gray); ok {
		r.ContrastRange = rng
		r.IsLowContrast = rng < a.cfg.ContrastThreshold
	}
	return r
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// blurScore crops to the central 50%x50% region to suppress background
// texture, convolves with a 3x3 Laplacian and returns the variance of the
// responses. Low variance means few strong edges.
func blurScore(g *image.Gray) (float64, bool) {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	crop := image.Rect(
		b.Min.X+w/4, b.Min.Y+h/4,
		b.Min.X+w/4+w/2, b.Min.Y+h/4+h/2,
	)
	c := g.SubImage(crop).(*image.Gray)
	cb := c.Bounds()
	if cb.Dx() < 3 || cb.Dy() < 3 {
		return 0, false
	}

	at := func(x, y int) float64 {
		return float64(c.GrayAt(x, y).Y)
	}

	var sum, sumSq float64
	var n int
	for y := cb.Min.Y + 1; y < cb.Max.Y-1; y++ {
		for x := cb.Min.X + 1; x < cb.Max.X-1; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean, true
}

// glareRatio returns the fraction of pixels at or above the bright-intensity
// threshold, from a 256-bin histogram.
func glareRatio(g *image.Gray, intensity int) (float64, bool) {
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0, false
	}
	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[g.GrayAt(x, y).Y]++
		}
	}
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 255 {
		return 0, true
	}
	var bright int
	for i := intensity; i < 256; i++ {
		bright += hist[i]
	}
	return float64(bright) / float64(total), true
}

// contrastRange returns max-min grayscale intensity.
func contrastRange(g *image.Gray) (int, bool) {
	b := g.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0, false
	}
	minV, maxV := 255, 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := int(g.GrayAt(x, y).Y)
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	return maxV - minV, true
}
