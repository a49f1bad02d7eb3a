package server

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxUploadBytes = 20 << 20

// HandleUpload receives an image from the scan page, gates it on quality and
// stores it in the upload bucket, where the storage notification picks it up
// for extraction. Quality failures refuse the upload outright, listing each
// failing check with its measured value; nothing is persisted.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "aucun fichier n'a ete envoye")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "aucun fichier n'a ete envoye")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "aucun fichier n'a ete selectionne")
		return
	}

	// read one byte past the limit so an oversized file is told apart
	// from one that is exactly at it
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.logger.Error("server.upload.read_failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "erreur lors de la lecture du fichier")
		return
	}
	if len(data) > maxUploadBytes {
		s.logger.Warn("server.upload.too_large", "filename", header.Filename)
		writeError(w, http.StatusRequestEntityTooLarge, "le fichier depasse la taille maximale de 20 Mo")
		return
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("server.upload.decode_failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, "le fichier n'est pas une image lisible")
		return
	}

	report := s.uploadGate.Assess(img)
	if failures := report.Failures(s.uploadCfg); len(failures) > 0 {
		s.metrics.UploadsRejected.Inc()
		s.logger.Info("server.upload.rejected",
			"filename", header.Filename,
			"checks", failures,
		)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "la qualite de l'image est insuffisante : " + strings.Join(failures, "; "),
			"checks": failures,
		})
		return
	}

	name := fmt.Sprintf("%s-%s", time.Now().Format("2006-01-02_15-04-05"), header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/" + format
	}
	if err := s.uploads.Put(r.Context(), name, data, contentType); err != nil {
		s.logger.Error("server.upload.store_failed", "filename", name, "error", err)
		writeError(w, http.StatusInternalServerError, "erreur lors de l'upload vers le stockage")
		return
	}

	s.logger.Info("server.upload.ok", "filename", name, "format", format, "bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]string{"uploaded_file": name})
}
