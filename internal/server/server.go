// Package server exposes the analysis pipeline as a small upload API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/edaloom-cli/internal/pipeline"
	"github.com/KaramelBytes/edaloom-cli/internal/report"
)

// Options configures the HTTP surface.
type Options struct {
	Addr         string
	ArtifactsDir string
	// MaxUploadBytes caps the request body; 0 means 32 MiB.
	MaxUploadBytes int64
	// RequestTimeout bounds one analyze request; 0 means 5 minutes.
	RequestTimeout time.Duration
}

// AnalyzeResponse is the JSON body returned by POST /api/v1/analyze.
type AnalyzeResponse struct {
	OK     bool     `json:"ok"`
	RunID  string   `json:"run_id,omitempty"`
	Report string   `json:"report"`
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

type Server struct {
	opt      Options
	router   *chi.Mux
	pipeline *pipeline.Pipeline
}

func New(p *pipeline.Pipeline, opt Options) *Server {
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 32 << 20
	}
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 5 * time.Minute
	}
	s := &Server{opt: opt, router: chi.NewRouter(), pipeline: p}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.Timeout(s.opt.RequestTimeout)).Post("/analyze", s.handleAnalyze)
		r.Get("/health", s.handleHealth)
	})

	s.router.Get("/artifacts/{runID}/{file}", s.handleArtifact)
}

// handleArtifact serves one regular file from a run directory. Directories
// are never listed, so run ids are only known to the client that uploaded.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	runID, name := chi.URLParam(r, "runID"), chi.URLParam(r, "file")
	if !pathSegment(runID) || !pathSegment(name) {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(filepath.Join(s.opt.ArtifactsDir, runID, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func pathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if bodyTooLarge(err) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		slog.Debug("unreadable analyze request", "error", err)
		http.Error(w, "expected a multipart form upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Debug("analyze request without file", "error", err)
		http.Error(w, "missing form file \"file\"", http.StatusBadRequest)
		return
	}
	defer file.Close()

	slog.Info("handling analyze request", "filename", header.Filename, "size", header.Size,
		"request_id", middleware.GetReqID(r.Context()))
	rep := s.pipeline.RunReader(r.Context(), file, header.Filename)
	writeJSON(w, http.StatusOK, s.response(rep))
}

// bodyTooLarge reports whether err came from the MaxBytesReader limit. Some
// multipart paths drop the typed error, so the message is checked as well.
func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

// response maps artifact paths to URLs under /artifacts/.
func (s *Server) response(rep report.Report) AnalyzeResponse {
	out := AnalyzeResponse{
		OK:     rep.OK,
		RunID:  rep.RunID,
		Report: rep.Text(),
		Images: make([]string, 0, len(rep.Images)),
		Error:  rep.Error,
	}
	for _, p := range rep.Images {
		rel, err := filepath.Rel(s.opt.ArtifactsDir, p)
		if err != nil {
			slog.Warn("artifact outside artifacts dir", "path", p, "error", err)
			continue
		}
		out.Images = append(out.Images, path.Join("/artifacts", filepath.ToSlash(rel)))
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", s.opt.Addr, "artifacts_dir", s.opt.ArtifactsDir)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
