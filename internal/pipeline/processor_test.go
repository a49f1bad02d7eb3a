package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jae-tennis/scan-pipeline/internal/entity"
	"github.com/jae-tennis/scan-pipeline/internal/lock"
	"github.com/jae-tennis/scan-pipeline/internal/metrics"
	"github.com/jae-tennis/scan-pipeline/internal/quality"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

type stubExtractor struct {
	resp  string
	err   error
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	s.calls++
	return s.resp, s.err
}

type fixture struct {
	opener    *storage.MemoryOpener
	results   *storage.MemoryStore
	locker    *lock.Locker
	extractor *stubExtractor
	processor *Processor
}

func newFixture(t *testing.T, resp string) *fixture {
	t.Helper()
	opener := storage.NewMemoryOpener()
	results := storage.NewMemoryStore()
	locker := lock.NewLocker(results, nil)
	ext := &stubExtractor{resp: resp}
	p := NewProcessor(nil, opener, results, locker, quality.DefaultConfig(), ext, metrics.New(prometheus.NewRegistry()))
	return &fixture{opener: opener, results: results, locker: locker, extractor: ext, processor: p}
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/2+y/2)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func (f *fixture) putSource(t *testing.T, bucket, key string, data []byte) {
	t.Helper()
	require.NoError(t, f.opener.Bucket(bucket).Put(context.Background(), key, data, "image/jpeg"))
}

func TestProcessEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "```json\n{\"nom\":\"DUPONT\",\"prenom\":\"Marc\",\"type\":\"licence\",\"licence\":\"987654C\",\"confidence\":\"haute\"}\n```")
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))

	b, err := f.results.Get(ctx, "LIC_Marc_DUPONT.json")
	require.NoError(t, err)

	var res entity.ExtractionResult
	require.NoError(t, json.Unmarshal(b, &res))
	require.Equal(t, "licence", res.Type)
	require.Equal(t, "987654C", res.LicenceNo, "licence synonym renamed to licence_no")
	require.Equal(t, "gs://src/scan1.jpg", res.ImageURI)
	require.True(t, res.QualityCheckPassed)

	require.False(t, f.locker.IsHeld(ctx, "scan1.jpg"), "lock absent after completion")
}

func TestProcessIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"nom":"DUPONT","prenom":"Marc","type":"licence","licence":"987654C"}`)
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	first, err := f.results.Get(ctx, "LIC_Marc_DUPONT.json")
	require.NoError(t, err)

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	second, err := f.results.Get(ctx, "LIC_Marc_DUPONT.json")
	require.NoError(t, err)

	require.Equal(t, first, second, "reprocessing an unchanged object rewrites an identical blob")
}

func TestProcessSkipsNonImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{}`)
	f.putSource(t, "src", "notes.txt", []byte("not an image"))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "notes.txt"}))
	require.Zero(t, f.extractor.calls)

	keys, err := f.results.List(ctx, "")
	require.NoError(t, err)
	require.Empty(t, keys, "no side effects for non-image objects")
}

func TestProcessSkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{}`)
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))
	require.True(t, f.locker.TryAcquire(ctx, "scan1.jpg"))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	require.Zero(t, f.extractor.calls)
	require.True(t, f.locker.IsHeld(ctx, "scan1.jpg"), "the foreign lock is not released")
}

func TestProcessDecodeFailureReleasesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{}`)
	f.putSource(t, "src", "scan1.jpg", []byte("garbage bytes"))

	err := f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"})
	require.Error(t, err)
	require.Zero(t, f.extractor.calls)
	require.False(t, f.locker.IsHeld(ctx, "scan1.jpg"), "lock released on failure")
}

func TestProcessMalformedResponseLeavesNoResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "desole, je ne peux pas lire ce document")
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	err := f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"})
	require.Error(t, err)

	keys, listErr := f.results.List(ctx, "")
	require.NoError(t, listErr)
	require.Empty(t, keys)
	require.False(t, f.locker.IsHeld(ctx, "scan1.jpg"))
}

func TestProcessMissingSourceReleasesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{}`)

	err := f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "ghost.jpg"})
	require.Error(t, err)
	require.False(t, f.locker.IsHeld(ctx, "ghost.jpg"))
}

func TestProcessClassification(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		docType string
		wantKey string
	}{
		{"licence", "LIC_Lea_MARTIN.json"},
		{"Licence", "LIC_Lea_MARTIN.json"},
		{"identite", "PID_Lea_MARTIN.json"},
		{"IDENTITE", "PID_Lea_MARTIN.json"},
		{"autre", "UNKNOWN_Lea_MARTIN.json"},
	}
	for _, tc := range cases {
		resp, err := json.Marshal(map[string]string{"nom": "MARTIN", "prenom": "Lea", "type": tc.docType})
		require.NoError(t, err)
		f := newFixture(t, string(resp))
		f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

		require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
		ok, err := f.results.Exists(ctx, tc.wantKey)
		require.NoError(t, err)
		require.True(t, ok, "docType=%q want %s", tc.docType, tc.wantKey)
	}
}

func TestProcessDefaultsMissingNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"type":"licence","licence":"111"}`)
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	ok, err := f.results.Exists(ctx, "LIC_unknown_unknown.json")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProcessPersistsSeasonStyleYear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"nom":"MARTIN","prenom":"Lea","type":"licence","licence":"1234567B","annee_validite":"2024/2025","confidence":"haute"}`)
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	b, err := f.results.Get(ctx, "LIC_Lea_MARTIN.json")
	require.NoError(t, err, "a parsed record with a season-style year is still persisted")

	var res entity.ExtractionResult
	require.NoError(t, json.Unmarshal(b, &res))
	require.Equal(t, "2024", res.AnneeValidite)
}

func TestProcessPersistsUnparsableYear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"nom":"MARTIN","prenom":"Lea","type":"licence","annee_validite":"n/a"}`)
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	b, err := f.results.Get(ctx, "LIC_Lea_MARTIN.json")
	require.NoError(t, err)

	var res entity.ExtractionResult
	require.NoError(t, json.Unmarshal(b, &res))
	require.Empty(t, res.AnneeValidite)
}

func TestProcessLowConfidenceFailsQualityCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"nom":"MARTIN","prenom":"Lea","type":"licence","licence":"1234567B","confidence":"moyenne"}`)
	f.putSource(t, "src", "scan1.jpg", jpegBytes(t))

	require.NoError(t, f.processor.Process(ctx, entity.SourceObject{Bucket: "src", Key: "scan1.jpg"}))
	b, err := f.results.Get(ctx, "LIC_Lea_MARTIN.json")
	require.NoError(t, err)

	var res entity.ExtractionResult
	require.NoError(t, json.Unmarshal(b, &res))
	require.False(t, res.QualityCheckPassed)
}
