package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons for ObjectsSkipped.
const (
	SkipNotImage = "not_image"
	SkipLocked   = "locked"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsReceived     prometheus.Counter
	ObjectsProcessed   prometheus.Counter
	ObjectsSkipped     *prometheus.CounterVec
	ObjectsFailed      prometheus.Counter
	UploadsRejected    prometheus.Counter
	ExtractionDuration prometheus.Histogram
}

// New creates and registers all metrics on reg. Pass nil to use the default
// registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		EventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_pipeline_events_received_total",
			Help: "Total number of storage-change events received",
		}),
		ObjectsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_pipeline_objects_processed_total",
			Help: "Total number of source objects processed to a persisted result",
		}),
		ObjectsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_pipeline_objects_skipped_total",
			Help: "Total number of source objects skipped, by reason",
		}, []string{"reason"}),
		ObjectsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_pipeline_objects_failed_total",
			Help: "Total number of source objects whose processing failed",
		}),
		UploadsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_pipeline_uploads_rejected_total",
			Help: "Total number of interactive uploads rejected by the quality gate",
		}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_pipeline_extraction_duration_seconds",
			Help:    "Duration of extraction service calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
