package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/executors"
	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/service"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

const maxUploadSize = 10 << 20

// Server exposes the pipeline over HTTP.
type Server struct {
	config    *config.Config
	logger    *log.Logger
	mux       *http.ServeMux
	processor *service.Processor
	executor  *executors.Executor

	// one pipeline at a time: runs write into the shared output directory
	runMu sync.Mutex
}

// New creates a new HTTP server
func New(config *config.Config, logger *log.Logger, processor *service.Processor, executor *executors.Executor) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		mux:       http.NewServeMux(),
		processor: processor,
		executor:  executor,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/sync", s.withLogging(s.handleSync))
	s.mux.HandleFunc("/api/upload", s.withLogging(s.handleUpload))
	s.mux.HandleFunc("/api/batches", s.withLogging(s.handleBatches))
	s.mux.HandleFunc("/api/files/", s.withLogging(s.handleFiles))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	res, err := s.run(r.Context(), func(ctx context.Context) (*wallet.Result, error) {
		return s.processor.Run(ctx)
	})
	if err != nil {
		s.respondError(w, r, statusFor(err), failure.Reason(err), err)
		return
	}
	s.respondResult(w, res)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("transactions")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "transactions file required", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return
	}

	// Apply works on a file on disk: the trim step rewrites it in place.
	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to store file", err)
		return
	}
	path := filepath.Join(s.config.OutputDir, filepath.Base(header.Filename))

	res, err := s.run(r.Context(), func(ctx context.Context) (*wallet.Result, error) {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, failure.New(failure.Filesystem, "failed to store file", err)
		}
		return s.executor.Apply(ctx, path)
	})
	if err != nil {
		s.respondError(w, r, statusFor(err), failure.Reason(err), err)
		return
	}
	s.respondResult(w, res)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	batches, err := s.executor.ListBatches(r.Context())
	if err != nil {
		s.respondError(w, r, statusFor(err), failure.Reason(err), err)
		return
	}
	s.logger.Info("batches response", "batches_count", len(batches))

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"batches": batches,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleFiles serves a batch file previously written to the output directory.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if filename == "" || filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".csv") {
		s.respondError(w, r, http.StatusBadRequest, "invalid filename", nil)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.config.OutputDir, filename))
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "file not found", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}

// run executes one pipeline at a time. The pipeline outlives the request: once
// a batch is uploaded it must be configured even if the client went away.
// Each remote step is still bounded by the step timeout.
func (s *Server) run(ctx context.Context, fn func(context.Context) (*wallet.Result, error)) (*wallet.Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return fn(context.WithoutCancel(ctx))
}

func (s *Server) respondResult(w http.ResponseWriter, res *wallet.Result) {
	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   res.Status.String(),
		"message":  res.Message,
		"file":     filepath.Base(res.File),
		"batch_id": res.BatchID,
		"rows":     res.Rows,
		"skipped":  res.Skipped,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// statusFor maps a step failure onto a response status: local problems are
// the caller's, everything else happened upstream.
func statusFor(err error) int {
	switch {
	case failure.Is(err, failure.Validation):
		return http.StatusBadRequest
	case failure.Is(err, failure.Filesystem):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
