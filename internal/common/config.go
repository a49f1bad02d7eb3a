package common

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, parsed from the environment.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gemini  GeminiConfig
	Quality QualityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// StorageConfig names the buckets the pipeline reads and writes.
type StorageConfig struct {
	// UploadBucket receives images from the interactive upload surface.
	UploadBucket string `env:"UPLOAD_BUCKET" envDefault:"jae-scan-bucket"`
	// ResultsBucket holds extraction results and lock markers.
	ResultsBucket string `env:"RESULTS_BUCKET" envDefault:"jae-scan-results"`
}

// GeminiConfig holds extraction service configuration.
type GeminiConfig struct {
	APIKey      string        `env:"GEMINI_API_KEY"`
	BaseURL     string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Model       string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	Temperature float32       `env:"GEMINI_TEMPERATURE" envDefault:"0.2"`
	Timeout     time.Duration `env:"GEMINI_TIMEOUT" envDefault:"60s"`
}

// QualityConfig holds image quality thresholds. The event pipeline and the
// interactive upload gate use different blur thresholds: the pipeline only
// annotates results, while the upload gate rejects outright and is stricter.
type QualityConfig struct {
	PipelineBlurThreshold float64 `env:"PIPELINE_BLUR_THRESHOLD" envDefault:"100"`
	UploadBlurThreshold   float64 `env:"UPLOAD_BLUR_THRESHOLD" envDefault:"500"`
	GlareIntensity        int     `env:"GLARE_INTENSITY" envDefault:"250"`
	GlareRatioThreshold   float64 `env:"GLARE_RATIO_THRESHOLD" envDefault:"0.05"`
	ContrastThreshold     int     `env:"CONTRAST_THRESHOLD" envDefault:"50"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Storage.ResultsBucket == "" {
		return NewAppError("CONFIG_ERROR", "RESULTS_BUCKET is required", ErrInvalidInput)
	}
	if c.Storage.UploadBucket == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_BUCKET is required", ErrInvalidInput)
	}
	return nil
}
