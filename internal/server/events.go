package server

import (
	"encoding/json"
	"net/http"

	"github.com/jae-tennis/scan-pipeline/internal/entity"
)

// Envelope is the inbound storage-change notification payload.
type Envelope struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// HandleEvent processes one storage-change notification. Only envelope-shape
// problems surface as request errors; once the envelope parses, the response
// is 204 no matter what happened to the object, so the notification source
// never loops on redelivery for a permanently broken object.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.logger.Error("server.event.bad_envelope", "error", err)
		writeError(w, http.StatusBadRequest, "invalid event envelope")
		return
	}
	if env.Bucket == "" || env.Name == "" {
		s.logger.Error("server.event.incomplete_envelope", "bucket", env.Bucket, "name", env.Name)
		writeError(w, http.StatusBadRequest, "event envelope requires bucket and name")
		return
	}

	s.metrics.EventsReceived.Inc()
	src := entity.SourceObject{Bucket: env.Bucket, Key: env.Name}
	if err := s.processor.Process(r.Context(), src); err != nil {
		// observability only; never escalated past this handler
		s.logger.Error("server.event.processing_failed", "bucket", src.Bucket, "key", src.Key, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
