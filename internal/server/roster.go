package server

import (
	"net/http"
	"time"
)

// HandleRoster returns the current roster view, recomputed from the results
// bucket on every call.
func (s *Server) HandleRoster(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	list, err := s.reconciler.List(r.Context())
	if err != nil {
		s.logger.Error("server.roster.build_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "erreur lors de la construction de la liste")
		return
	}
	s.logger.Info("server.roster.ok", "participants", len(list), "elapsed_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, list)
}

// HandleExport serves the roster as an XLSX download.
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.exporter.ExportRosterXLSX(r.Context())
	if err != nil {
		s.logger.Error("server.export.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "erreur lors de l'export")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="participants.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
