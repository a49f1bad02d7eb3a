// Package pipeline runs the per-object extraction flow: lock, fetch, assess,
// extract, sanitize, classify, persist.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"time"

	// registered decoders for the allowed upload formats
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"github.com/jae-tennis/scan-pipeline/constants"
	"github.com/jae-tennis/scan-pipeline/internal/entity"
	"github.com/jae-tennis/scan-pipeline/internal/llm"
	"github.com/jae-tennis/scan-pipeline/internal/lock"
	"github.com/jae-tennis/scan-pipeline/internal/metrics"
	"github.com/jae-tennis/scan-pipeline/internal/quality"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

// Processor coordinates one storage-change notification end to end. It is
// designed to be invoked once per notification; redelivery is safe because
// the lock-skip and overwrite-on-write semantics make reprocessing
// idempotent.
type Processor struct {
	logger    *slog.Logger
	opener    storage.BucketOpener
	results   storage.BlobStore
	locker    *lock.Locker
	assessor  *quality.Assessor
	qcfg      quality.Config
	extractor llm.Extractor
	schema    map[string]any
	metrics   *metrics.Metrics
}

func NewProcessor(
	logger *slog.Logger,
	opener storage.BucketOpener,
	results storage.BlobStore,
	locker *lock.Locker,
	qcfg quality.Config,
	extractor llm.Extractor,
	m *metrics.Metrics,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		opener:    opener,
		results:   results,
		locker:    locker,
		assessor:  quality.NewAssessor(qcfg),
		qcfg:      qcfg,
		extractor: extractor,
		schema:    llm.BuildDocumentJSONSchema(),
		metrics:   m,
	}
}

// Process handles one source object. The returned error is for logs and
// tests only: the events endpoint reports success to its invoker regardless,
// so a permanently failing object never causes a redelivery storm. Skips
// (non-image key, already-locked key) are successful no-ops.
func (p *Processor) Process(ctx context.Context, src entity.SourceObject) error {
	rid := uuid.New().String()
	log := p.logger.With("req_id", rid, "bucket", src.Bucket, "key", src.Key)

	if !constants.IsImageKey(src.Key) {
		log.Info("pipeline.skip.not_image")
		p.metrics.ObjectsSkipped.WithLabelValues(metrics.SkipNotImage).Inc()
		return nil
	}

	if !p.locker.TryAcquire(ctx, src.Key) {
		log.Info("pipeline.skip.locked")
		p.metrics.ObjectsSkipped.WithLabelValues(metrics.SkipLocked).Inc()
		return nil
	}
	// released on every exit path, including panics in the stages below
	defer p.locker.Release(ctx, src.Key)

	if err := p.run(ctx, log, src); err != nil {
		p.metrics.ObjectsFailed.Inc()
		return err
	}
	p.metrics.ObjectsProcessed.Inc()
	return nil
}

func (p *Processor) run(ctx context.Context, log *slog.Logger, src entity.SourceObject) error {
	data, err := p.opener.Bucket(src.Bucket).Get(ctx, src.Key)
	if err != nil {
		log.Error("pipeline.fetch.failed", "error", err)
		return fmt.Errorf("fetch source: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Error("pipeline.decode.failed", "error", err, "bytes", len(data))
		return fmt.Errorf("decode image: %w", err)
	}
	log.Info("pipeline.decode.ok", "format", format, "bytes", len(data))

	report := p.assessor.Assess(img)
	if !report.OK() {
		log.Warn("pipeline.quality.issues", "notes", report.Notes(p.qcfg))
	}

	start := time.Now()
	raw, err := p.extractor.Extract(ctx, data, constants.MimeTypeForKey(src.Key))
	p.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("pipeline.extract.failed", "error", err)
		return fmt.Errorf("extract: %w", err)
	}

	outcome := llm.ParseModelResponse(raw)
	if outcome.Malformed {
		log.Error("pipeline.extract.malformed_response", "raw", outcome.Raw)
		return fmt.Errorf("malformed extraction response")
	}

	fields, _ := llm.NormalizeAndSanitize(outcome.Fields, log)
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode sanitized fields: %w", err)
	}
	if err := llm.ValidateAgainstSchema(p.schema, encoded); err != nil {
		log.Error("pipeline.extract.schema_validation_failed", "error", err, "fields", string(encoded))
		return fmt.Errorf("schema validation: %w", err)
	}
	var doc llm.DocumentFields
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("decode sanitized fields: %w", err)
	}

	result := entity.ExtractionResult{
		Type:          doc.Type,
		Nom:           doc.Nom,
		Prenom:        doc.Prenom,
		LicenceNo:     doc.LicenceNo,
		AnneeValidite: doc.AnneeValidite,
		Classement:    doc.Classement,
		Club:          doc.Club,
		Statut:        doc.Statut,
		Confidence:    doc.Confidence,
		Notes:         report.Notes(p.qcfg),
		ImageURI:      entity.ImageURI(src.Bucket, src.Key),

		IsBlurry:           report.IsBlurry,
		HasGlare:           report.HasGlare,
		IsLowContrast:      report.IsLowContrast,
		QualityCheckPassed: doc.Confidence == llm.ConfidenceHigh,
	}

	prefix := constants.PrefixForDocType(result.Type)
	key := entity.BuildResultKey(prefix, result.Prenom, result.Nom)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := p.results.Put(ctx, key, payload, "application/json"); err != nil {
		log.Error("pipeline.persist.failed", "result_key", key, "error", err)
		return fmt.Errorf("persist result: %w", err)
	}

	log.Info("pipeline.extract.ok",
		"result_key", key,
		"doc_type", result.Type,
		"confidence", result.Confidence,
		"quality_check_passed", result.QualityCheckPassed,
	)
	return nil
}
