// Package server exposes the pipeline over HTTP: upload a scanned PDF,
// download the searchable result, check dependencies and clean up.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/semaphore"

	"github.com/gardar/searchpdf/pkg/health"
	"github.com/gardar/searchpdf/pkg/pdfocr"
	"github.com/gardar/searchpdf/pkg/pipeline"
	"github.com/gardar/searchpdf/pkg/storage"
)

// multipartOverhead is allowed on top of the document size for the
// multipart envelope.
const multipartOverhead = 1 << 20

// Processor converts a stored input into a searchable output.
type Processor interface {
	Process(ctx context.Context, inputPath, outputPath string) (pipeline.Result, error)
}

// HealthChecker probes the external tools.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Options configure a Server.
type Options struct {
	Store          *storage.Store
	Processor      Processor
	Checker        HealthChecker
	StaticDir      string
	MaxUploadBytes int64         // 0 = pipeline.MaxUploadBytes
	Workers        int           // Documents processed at once, 0 = 1
	RequestTimeout time.Duration // Processing budget per document, 0 = none
	Logger         *slog.Logger
}

// Server holds the routes and the worker pool.
type Server struct {
	store     *storage.Store
	processor Processor
	checker   HealthChecker
	staticDir string
	maxBytes  int64
	timeout   time.Duration
	workers   *semaphore.Weighted
	logger    *slog.Logger
	router    *chi.Mux
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = pipeline.MaxUploadBytes
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	s := &Server{
		store:     opts.Store,
		processor: opts.Processor,
		checker:   opts.Checker,
		staticDir: opts.StaticDir,
		maxBytes:  opts.MaxUploadBytes,
		timeout:   opts.RequestTimeout,
		workers:   semaphore.NewWeighted(int64(opts.Workers)),
		logger:    opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(s.housekeeping)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	r.Post("/upload-pdf/", s.handleUpload)
	r.Get("/download/{file_id}", s.handleDownload)
	r.Get("/health", s.handleHealth)
	r.Delete("/cleanup/{file_id}", s.handleCleanup)
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// housekeeping drops expired artifacts before every request.
func (s *Server) housekeeping(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.store.Cleanup()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeDetail(w, http.StatusNotFound, "Frontend file not found. Please ensure static/index.html exists.")
		return
	}
	http.ServeFile(w, r, index)
}

type uploadResponse struct {
	Message           string `json:"message"`
	FileID            string `json:"file_id"`
	OriginalFilename  string `json:"original_filename"`
	DownloadURL       string `json:"download_url"`
	FileSize          int64  `json:"file_size"`
	HasSelectableText bool   `json:"has_selectable_text"`
	CharacterCount    int    `json:"character_count"`
	ProcessingMethod  string `json:"processing_method"`
	StrategyUsed      string `json:"strategy_used"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("File size must be less than %dMB", s.maxBytes>>20))
			return
		}
		writeDetail(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	head := make([]byte, len(pipeline.Magic))
	n, _ := io.ReadFull(file, head)
	if err := pipeline.ValidateUpload(header.Filename, head[:n], header.Size, s.maxBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, pdfocr.Diagnostic(err))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Processing failed: "+err.Error())
		return
	}

	id := storage.NewID()
	logger := s.logger.With("file_id", id, "request_id", middleware.GetReqID(r.Context()))
	size, err := s.store.SaveInput(id, file)
	if err != nil {
		logger.Error("cannot store upload", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Processing failed: "+err.Error())
		return
	}
	logger.Info("upload stored", "filename", header.Filename, "size", size)

	if err := s.workers.Acquire(r.Context(), 1); err != nil {
		s.store.RemoveInput(id)
		writeDetail(w, http.StatusServiceUnavailable, "Request cancelled while waiting for a worker")
		return
	}
	defer s.workers.Release(1)

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.processor.Process(ctx, s.store.InputPath(id), s.store.OutputPath(id))
	if err != nil {
		logger.Error("processing failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, pdfocr.ErrInputValidation) {
			status = http.StatusBadRequest
		}
		writeDetail(w, status, pdfocr.Diagnostic(err))
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:           fmt.Sprintf("PDF processed successfully with perfect text selection (%s)", res.Diagnostic),
		FileID:            id,
		OriginalFilename:  header.Filename,
		DownloadURL:       "/download/" + id,
		FileSize:          size,
		HasSelectableText: res.HasSelectableText,
		CharacterCount:    res.CharacterCount,
		ProcessingMethod:  res.Stage,
		StrategyUsed:      res.Diagnostic,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "file_id")
	if !s.store.OutputExists(id) {
		writeDetail(w, http.StatusNotFound, "File not found or has expired")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="searchable_%s.pdf"`, id))
	http.ServeFile(w, r, s.store.OutputPath(id))
}

type healthResponse struct {
	Status       string          `json:"status"`
	Message      string          `json:"message"`
	Dependencies map[string]bool `json:"dependencies"`
	UploadDir    string          `json:"upload_dir"`
	OutputDir    string          `json:"output_dir"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.checker.Check(r.Context())
	resp := healthResponse{
		Status:       "healthy",
		Message:      "PDF OCR service is running",
		Dependencies: report.Available,
		UploadDir:    s.store.UploadDir,
		OutputDir:    s.store.OutputDir,
	}
	if !report.Healthy() {
		resp.Status = "degraded"
		resp.Message = "Missing dependencies: " + strings.Join(report.Missing, ", ")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "file_id")
	removed, err := s.store.RemoveOutput(id)
	switch {
	case err != nil && !errors.Is(err, storage.ErrInvalidID):
		s.logger.Error("error cleaning up file", "file_id", id, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Error cleaning up file", "error": err.Error()})
	case removed:
		writeJSON(w, http.StatusOK, map[string]string{"message": "File cleaned up successfully"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "File not found or already cleaned up"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
