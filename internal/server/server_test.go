package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jae-tennis/scan-pipeline/internal/entity"
	"github.com/jae-tennis/scan-pipeline/internal/export"
	"github.com/jae-tennis/scan-pipeline/internal/lock"
	"github.com/jae-tennis/scan-pipeline/internal/metrics"
	"github.com/jae-tennis/scan-pipeline/internal/pipeline"
	"github.com/jae-tennis/scan-pipeline/internal/quality"
	"github.com/jae-tennis/scan-pipeline/internal/roster"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

type stubExtractor struct {
	resp string
}

func (s *stubExtractor) Extract(context.Context, []byte, string) (string, error) {
	return s.resp, nil
}

type env struct {
	opener  *storage.MemoryOpener
	results *storage.MemoryStore
	uploads storage.BlobStore
	router  http.Handler
}

func newTestServer(t *testing.T, modelResp string) *env {
	t.Helper()
	opener := storage.NewMemoryOpener()
	results := storage.NewMemoryStore()
	uploads := opener.Bucket("jae-scan-bucket")
	locker := lock.NewLocker(results, nil)
	m := metrics.New(prometheus.NewRegistry())

	qcfg := quality.DefaultConfig()
	uploadCfg := qcfg
	uploadCfg.BlurThreshold = 500

	proc := pipeline.NewProcessor(nil, opener, results, locker, qcfg, &stubExtractor{resp: modelResp}, m)
	rec := roster.NewReconciler(results, nil)
	exp := export.NewService(rec, nil)
	srv := New(nil, proc, rec, exp, uploads, uploadCfg, m)

	return &env{opener: opener, results: results, uploads: uploads, router: srv.Router()}
}

func sharpJPEG(t *testing.T) []byte {
	t.Helper()
	// checkerboard with mid-gray dark cells: strong edges, no glare
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/2+y/2)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 200})
			} else {
				img.SetGray(x, y, color.Gray{Y: 30})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func whitePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postEvent(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestEventMalformedEnvelope(t *testing.T) {
	e := newTestServer(t, `{}`)
	require.Equal(t, http.StatusBadRequest, postEvent(e.router, "not json").Code)
	require.Equal(t, http.StatusBadRequest, postEvent(e.router, `{"bucket":"src"}`).Code)
	require.Equal(t, http.StatusBadRequest, postEvent(e.router, `{"name":"a.jpg"}`).Code)
}

func TestEventEndToEnd(t *testing.T) {
	e := newTestServer(t, "```json\n{\"nom\":\"DUPONT\",\"prenom\":\"Marc\",\"type\":\"licence\",\"licence\":\"987654C\"}\n```")
	require.NoError(t, e.opener.Bucket("src").Put(context.Background(), "scan1.jpg", sharpJPEG(t), "image/jpeg"))

	rr := postEvent(e.router, `{"bucket":"src","name":"scan1.jpg"}`)
	require.Equal(t, http.StatusNoContent, rr.Code)

	ok, err := e.results.Exists(context.Background(), "LIC_Marc_DUPONT.json")
	require.NoError(t, err)
	require.True(t, ok)

	held, err := e.results.Exists(context.Background(), "scan1.jpg.LOCK")
	require.NoError(t, err)
	require.False(t, held, "lock absent after completion")
}

func TestEventProcessingFailureStillReturns204(t *testing.T) {
	e := newTestServer(t, "pas de JSON ici")
	require.NoError(t, e.opener.Bucket("src").Put(context.Background(), "scan1.jpg", sharpJPEG(t), "image/jpeg"))

	rr := postEvent(e.router, `{"bucket":"src","name":"scan1.jpg"}`)
	require.Equal(t, http.StatusNoContent, rr.Code, "per-object failures never escalate")
}

func TestEventNonImageIsNoop(t *testing.T) {
	e := newTestServer(t, `{}`)
	rr := postEvent(e.router, `{"bucket":"src","name":"notes.txt"}`)
	require.Equal(t, http.StatusNoContent, rr.Code)

	keys, err := e.results.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func multipartUpload(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadAccepted(t *testing.T) {
	e := newTestServer(t, `{}`)
	body, contentType := multipartUpload(t, "licence.jpg", sharpJPEG(t))

	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["uploaded_file"], "licence.jpg")

	keys, err := e.uploads.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestUploadRejectedOnQuality(t *testing.T) {
	e := newTestServer(t, `{}`)
	body, contentType := multipartUpload(t, "blank.png", whitePNG(t))

	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var resp struct {
		Error  string   `json:"error"`
		Checks []string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Checks, "each failing check is enumerated")

	keys, err := e.uploads.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, keys, "nothing persisted on rejection")
}

func TestUploadTooLarge(t *testing.T) {
	e := newTestServer(t, `{}`)
	body, contentType := multipartUpload(t, "huge.jpg", make([]byte, maxUploadBytes+1))

	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), "taille maximale")

	keys, err := e.uploads.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestUploadMissingFile(t *testing.T) {
	e := newTestServer(t, `{}`)
	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(""))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRosterEndpoint(t *testing.T) {
	e := newTestServer(t, `{}`)
	res := entity.ExtractionResult{Nom: "MARTIN", Prenom: "Lea", LicenceNo: "1234567", Type: "licence"}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	require.NoError(t, e.results.Put(context.Background(), "LIC_Lea_MARTIN.json", b, "application/json"))

	req := httptest.NewRequest(http.MethodGet, "/participants", nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var list []entity.ParticipantRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "1234567", list[0].LicenceNo)
	require.False(t, list[0].IDChecked)
}

func TestExportEndpoint(t *testing.T) {
	e := newTestServer(t, `{}`)
	req := httptest.NewRequest(http.MethodGet, "/participants/export", nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	require.NotEmpty(t, rr.Body.Bytes())
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, `{}`)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
