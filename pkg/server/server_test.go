package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gardar/searchpdf/pkg/health"
	"github.com/gardar/searchpdf/pkg/pdfocr"
	"github.com/gardar/searchpdf/pkg/pipeline"
	"github.com/gardar/searchpdf/pkg/storage"
)

const searchable = "%PDF-1.4 searchable output"

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) Process(_ context.Context, in, out string) (pipeline.Result, error) {
	f.calls++
	if f.err != nil {
		os.Remove(in)
		return pipeline.Result{Diagnostic: pdfocr.Diagnostic(f.err)}, f.err
	}
	if err := os.WriteFile(out, []byte(searchable), 0o600); err != nil {
		return pipeline.Result{}, err
	}
	os.Remove(in)
	return pipeline.Result{
		Success:           true,
		Stage:             "OCRmyPDF",
		Method:            "Basic OCR",
		Diagnostic:        "Success using Basic OCR",
		OutputPath:        out,
		HasSelectableText: true,
		CharacterCount:    812,
	}, nil
}

type fakeChecker struct{ report health.Report }

func (f fakeChecker) Check(context.Context) health.Report { return f.report }

type fixture struct {
	server    *Server
	store     *storage.Store
	processor *fakeProcessor
	static    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.New(t.TempDir(), time.Hour, logger)
	if err != nil {
		t.Fatal(err)
	}
	proc := &fakeProcessor{}
	if p, ok := opts.Processor.(*fakeProcessor); ok {
		proc = p
	}
	opts.Store = store
	opts.Processor = proc
	opts.Logger = logger
	if opts.StaticDir == "" {
		opts.StaticDir = t.TempDir()
	}
	if opts.Checker == nil {
		opts.Checker = fakeChecker{health.Report{Available: map[string]bool{"ocrmypdf": true}}}
	}
	return &fixture{server: New(opts), store: store, processor: proc, static: opts.StaticDir}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-pdf/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestUploadDownloadCleanup(t *testing.T) {
	f := newFixture(t, Options{})
	input := []byte("%PDF-1.4 scanned pages")

	rec := f.do(t, uploadRequest(t, "scan.pdf", input))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	resp := decode(t, rec)
	id, _ := resp["file_id"].(string)
	if !storage.ValidID(id) {
		t.Fatalf("file_id = %q", id)
	}
	want := map[string]any{
		"message":             "PDF processed successfully with perfect text selection (Success using Basic OCR)",
		"original_filename":   "scan.pdf",
		"download_url":        "/download/" + id,
		"file_size":           float64(len(input)),
		"has_selectable_text": true,
		"character_count":     float64(812),
		"processing_method":   "OCRmyPDF",
		"strategy_used":       "Success using Basic OCR",
	}
	for k, v := range want {
		if resp[k] != v {
			t.Errorf("%s = %v, want %v", k, resp[k], v)
		}
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/download/"+id, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != searchable {
		t.Fatalf("download = %d %q", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "searchable_"+id+".pdf") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/cleanup/"+id, nil))
	if msg := decode(t, rec)["message"]; msg != "File cleaned up successfully" {
		t.Fatalf("cleanup message = %v", msg)
	}
	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/cleanup/"+id, nil))
	if msg := decode(t, rec)["message"]; msg != "File not found or already cleaned up" {
		t.Fatalf("second cleanup message = %v", msg)
	}
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/download/"+id, nil))
	if rec.Code != http.StatusNotFound || decode(t, rec)["detail"] != "File not found or has expired" {
		t.Fatalf("download after cleanup = %d %s", rec.Code, rec.Body)
	}
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		detail   string
	}{
		{"wrong extension", "scan.png", []byte("%PDF-1.4"), "Only PDF files are allowed"},
		{"not a pdf", "scan.pdf", []byte("GIF89a"), "File content is not a PDF"},
		{"too large", "scan.pdf", append([]byte("%PDF-1.4"), make([]byte, 1<<20)...), "File size must be less than 1MB"},
		// Past the multipart allowance the body reader itself stops the upload.
		{"body cut off", "scan.pdf", append([]byte("%PDF-1.4"), make([]byte, 5<<20)...), "File size must be less than 1MB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{MaxUploadBytes: 1 << 20})
			rec := f.do(t, uploadRequest(t, tt.filename, tt.content))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if d := decode(t, rec)["detail"]; d != tt.detail {
				t.Fatalf("detail = %v, want %q", d, tt.detail)
			}
			if f.processor.calls != 0 {
				t.Fatal("rejected upload reached the pipeline")
			}
			if entries, _ := os.ReadDir(f.store.UploadDir); len(entries) != 0 {
				t.Fatalf("rejected upload stored: %v", entries)
			}
		})
	}
}

func TestUploadWithoutFile(t *testing.T) {
	f := newFixture(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf/", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(t, req)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["detail"] != "No file uploaded" {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}

func TestUploadPipelineFailure(t *testing.T) {
	proc := &fakeProcessor{err: pdfocr.NewError(pdfocr.ErrPipelineExhausted, "process",
		"All OCR methods failed: tesseract not found", nil)}
	f := newFixture(t, Options{Processor: proc})

	rec := f.do(t, uploadRequest(t, "scan.pdf", []byte("%PDF-1.4 scanned")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if d := decode(t, rec)["detail"]; d != "All OCR methods failed: tesseract not found" {
		t.Fatalf("detail = %v", d)
	}
}

func TestUploadCancelledWhileQueued(t *testing.T) {
	f := newFixture(t, Options{Workers: 1})
	if err := f.server.workers.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer f.server.workers.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := f.do(t, uploadRequest(t, "scan.pdf", []byte("%PDF-1.4 scanned")).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.processor.calls != 0 {
		t.Fatal("queued request was processed")
	}
	if entries, _ := os.ReadDir(f.store.UploadDir); len(entries) != 0 {
		t.Fatalf("queued input left behind: %v", entries)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		report  health.Report
		status  string
		message string
	}{
		{
			name:    "healthy",
			report:  health.Report{Available: map[string]bool{"ocrmypdf": true, "tesseract": true}},
			status:  "healthy",
			message: "PDF OCR service is running",
		},
		{
			name: "degraded",
			report: health.Report{
				Available: map[string]bool{"ocrmypdf": false, "tesseract": true, "ghostscript": false},
				Missing:   []string{"ghostscript", "ocrmypdf"},
			},
			status:  "degraded",
			message: "Missing dependencies: ghostscript, ocrmypdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{Checker: fakeChecker{tt.report}})
			rec := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
			resp := decode(t, rec)
			if resp["status"] != tt.status || resp["message"] != tt.message {
				t.Fatalf("got %v", resp)
			}
			if resp["upload_dir"] != f.store.UploadDir || resp["output_dir"] != f.store.OutputDir {
				t.Fatalf("dirs = %v %v", resp["upload_dir"], resp["output_dir"])
			}
			deps, _ := resp["dependencies"].(map[string]any)
			if deps["tesseract"] != true {
				t.Fatalf("dependencies = %v", deps)
			}
		})
	}
}

func TestIndexAndStatic(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("index without file = %d", rec.Code)
	}
	if d := decode(t, rec)["detail"]; d != "Frontend file not found. Please ensure static/index.html exists." {
		t.Fatalf("detail = %v", d)
	}

	os.WriteFile(filepath.Join(f.static, "index.html"), []byte("<h1>upload</h1>"), 0o600)
	os.WriteFile(filepath.Join(f.static, "app.js"), []byte("console.log(1)"), 0o600)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>upload</h1>") {
		t.Fatalf("index = %d %q", rec.Code, rec.Body)
	}
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "console.log(1)" {
		t.Fatalf("static = %d %q", rec.Code, rec.Body)
	}
}

func TestHousekeepingBeforeRequests(t *testing.T) {
	f := newFixture(t, Options{})
	stale := filepath.Join(f.store.OutputDir, "stale_searchable.pdf")
	fresh := filepath.Join(f.store.OutputDir, "fresh_searchable.pdf")
	os.WriteFile(stale, []byte("%PDF-"), 0o600)
	os.WriteFile(fresh, []byte("%PDF-"), 0o600)
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expired output survived a request")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh output removed")
	}
}

func TestCleanupInvalidID(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, httptest.NewRequest(http.MethodDelete, "/cleanup/not-a-file-id", nil))
	if msg := decode(t, rec)["message"]; msg != "File not found or already cleaned up" {
		t.Fatalf("message = %v", msg)
	}
}
