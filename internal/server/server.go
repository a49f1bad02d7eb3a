// Package server exposes the HTTP surface: the storage-change events
// endpoint, the interactive upload gate, and the read-only roster queries.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jae-tennis/scan-pipeline/internal/export"
	"github.com/jae-tennis/scan-pipeline/internal/metrics"
	"github.com/jae-tennis/scan-pipeline/internal/pipeline"
	"github.com/jae-tennis/scan-pipeline/internal/quality"
	"github.com/jae-tennis/scan-pipeline/internal/roster"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

// Server wires the HTTP endpoints to the pipeline components.
type Server struct {
	logger     *slog.Logger
	processor  *pipeline.Processor
	reconciler *roster.Reconciler
	exporter   *export.Service
	uploads    storage.BlobStore
	uploadGate *quality.Assessor
	uploadCfg  quality.Config
	metrics    *metrics.Metrics
}

func New(
	logger *slog.Logger,
	processor *pipeline.Processor,
	reconciler *roster.Reconciler,
	exporter *export.Service,
	uploads storage.BlobStore,
	uploadCfg quality.Config,
	m *metrics.Metrics,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:     logger,
		processor:  processor,
		reconciler: reconciler,
		exporter:   exporter,
		uploads:    uploads,
		uploadGate: quality.NewAssessor(uploadCfg),
		uploadCfg:  uploadCfg,
		metrics:    m,
	}
}

// Router builds the chi router with all endpoints mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/events", s.HandleEvent)
	r.Post("/scan", s.HandleUpload)
	r.Get("/participants", s.HandleRoster)
	r.Get("/participants/export", s.HandleExport)
	r.Get("/healthz", s.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
