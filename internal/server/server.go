// Package server exposes the conversion pipeline over HTTP: PLY upload,
// job progress polling, artifact download, and cleanup.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/config"
	"github.com/philipparndt/goply/internal/convert"
	"github.com/philipparndt/goply/internal/job"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

// Server is the HTTP conversion service
type Server struct {
	cfg     config.Config
	manager *job.Manager
	logger  *zap.Logger
}

// New builds a Server from the configuration
func New(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	converter := convert.NewWithOptions(convert.Options{
		OutwardRatioThreshold: cfg.Convert.OutwardRatioThreshold,
		DensityStdDevCutoff:   cfg.Convert.DensityStdDevCutoff,
	}, logger)
	return &Server{
		cfg:     cfg,
		manager: job.NewManager(converter, logger),
		logger:  logger,
	}
}

// Manager exposes the job manager, mainly for tests
func (s *Server) Manager() *job.Manager { return s.manager }

// Handler returns the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /progress/{id}", s.handleProgress)
	mux.HandleFunc("GET /download/{id}/{format}", s.handleDownload)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /cleanup/{id}", s.handleCleanup)
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	for _, dir := range []string{s.cfg.Server.UploadDir, s.cfg.Server.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.manager.Wait()
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing file field"))
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".ply" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported file type %q, expected .ply", ext))
		return
	}

	smoothing := s.cfg.SmoothingLevel()
	if v := r.FormValue("smoothing"); v != "" {
		smoothing, err = mesh.ParseSmoothingLevel(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	formats := s.cfg.ExportFormats()
	if v := r.FormValue("formats"); v != "" {
		formats, err = parseFormats(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	inputPath := filepath.Join(s.cfg.Server.UploadDir, uuid.NewString()+".ply")
	if err := saveUpload(file, inputPath); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	j := s.manager.Submit(inputPath, s.cfg.Server.OutputDir, formats, smoothing)
	s.logger.Info("upload accepted",
		zap.String("job", j.ID()),
		zap.String("filename", header.Filename),
		zap.Int64("bytes", header.Size))

	writeJSON(w, http.StatusAccepted, j.Snapshot())
}

// progressResponse augments the job snapshot with download links once
// artifacts are available
type progressResponse struct {
	job.Snapshot
	Downloads map[string]string `json:"downloads,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	resp := progressResponse{Snapshot: snap}
	if len(snap.Outputs) > 0 {
		resp.Downloads = make(map[string]string, len(snap.Outputs))
		for format := range snap.Outputs {
			resp.Downloads[format] = fmt.Sprintf("/download/%s/%s", snap.ID, format)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	path, err := s.manager.Output(r.PathValue("id"), format)
	if err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, job.ErrNotFound) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.manager.List()})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.Cleanup(id); err != nil {
		status := http.StatusNotFound
		if errors.Is(err, job.ErrStillRunning) {
			status = http.StatusConflict
		} else if !errors.Is(err, job.ErrNotFound) {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cleaned"})
}

func parseFormats(s string) ([]export.Format, error) {
	var formats []export.Format
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, errors.New("no output formats requested")
	}
	return formats, nil
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("save upload: %w", err)
	}
	return dst.Close()
}
