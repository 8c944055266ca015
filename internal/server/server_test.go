package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/config"
	"github.com/philipparndt/goply/internal/job"
)

const tetrahedronPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 4
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
0 0 1
3 0 2 1
3 0 1 3
3 0 3 2
3 1 2 3
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()
	cfg.Server.OutputDir = t.TempDir()
	return New(cfg, zap.NewNop())
}

func uploadRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) job.Snapshot {
	t.Helper()
	var snap job.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	return snap
}

func TestUploadToDownloadFlow(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t,
		map[string]string{"formats": "stl,obj", "smoothing": "light"},
		"model.ply", tetrahedronPLY))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	snap := decodeSnapshot(t, rec)
	require.NotEmpty(t, snap.ID)
	srv.Manager().Wait()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/"+snap.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var progress struct {
		job.Snapshot
		Downloads map[string]string `json:"downloads"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&progress))
	assert.Equal(t, job.StatusCompleted, progress.Status)
	assert.Equal(t, 100, progress.Progress)
	assert.Contains(t, progress.Outputs, "stl")
	assert.Contains(t, progress.Outputs, "obj")
	assert.Equal(t, "/download/"+snap.ID+"/stl", progress.Downloads["stl"])
	snap = progress.Snapshot

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/"+snap.ID+"/stl", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, rec.Body.Len())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "_smooth.stl")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Jobs []job.Snapshot `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Len(t, status.Jobs, 1)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cleanup/"+snap.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/"+snap.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRejectsNonPLY(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, nil, "model.stl", "solid x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t,
		map[string]string{"formats": "vrml"}, "model.ply", tetrahedronPLY))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsUnknownSmoothing(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t,
		map[string]string{"smoothing": "extreme"}, "model.ply", tetrahedronPLY))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailedJobReportsError(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, nil, "bad.ply", "not a ply at all"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	snap := decodeSnapshot(t, rec)
	srv.Manager().Wait()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/"+snap.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	assert.Equal(t, job.StatusFailed, snap.Status)
	assert.NotEmpty(t, snap.Error)
}

func TestUnknownJobRoutes(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	for _, target := range []string{"/progress/ghost", "/download/ghost/stl"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cleanup/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadRejectsBadFormat(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/any/vrml", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const trianglePLY = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
3 0 1 2
`

// convertedFaceCount uploads a single triangle and counts the faces in
// the OBJ the server hands back
func convertedFaceCount(t *testing.T, srv *Server) int {
	t.Helper()
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t,
		map[string]string{"formats": "obj"}, "tri.ply", trianglePLY))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	snap := decodeSnapshot(t, rec)
	srv.Manager().Wait()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/"+snap.ID+"/obj", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	faces := 0
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "f ") {
			faces++
		}
	}
	return faces
}

func TestConfiguredOutwardThresholdApplied(t *testing.T) {
	// default threshold doubles a lone triangle; threshold 0 must not
	assert.Equal(t, 2, convertedFaceCount(t, newTestServer(t)))

	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()
	cfg.Server.OutputDir = t.TempDir()
	cfg.Convert.OutwardRatioThreshold = 0
	assert.Equal(t, 1, convertedFaceCount(t, New(cfg, zap.NewNop())))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
