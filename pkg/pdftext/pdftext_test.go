package pdftext

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

const sentence = "The quick brown fox jumps over the lazy dog while the scanner hums."

// writePDF writes a document with one page per entry of texts; an empty
// entry gives a page without text.
func writePDF(t *testing.T, size string, texts ...string) string {
	t.Helper()
	pdf := fpdf.New("P", "pt", size, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range texts {
		pdf.AddPage()
		if text != "" {
			pdf.Text(72, 100, text)
		} else {
			pdf.Rect(72, 72, 100, 100, "F")
		}
	}
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	return path
}

func TestReaderPages(t *testing.T) {
	path := writePDF(t, "A4", sentence, "")

	pages, err := Reader{}.Pages(context.Background(), path)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	for i, p := range pages {
		if p.Index != i {
			t.Errorf("page %d has index %d", i, p.Index)
		}
		if math.Abs(p.Width-595.28) > 0.01 || math.Abs(p.Height-841.89) > 0.01 {
			t.Errorf("page %d size = %vx%v, want A4", i, p.Width, p.Height)
		}
	}
	if !strings.Contains(pages[0].Text, "quick brown fox") {
		t.Errorf("page 1 text = %q", pages[0].Text)
	}
	if strings.TrimSpace(pages[1].Text) != "" {
		t.Errorf("page 2 text = %q, want none", pages[1].Text)
	}
	if pages[0].NeedsOCR(50) || !pages[1].NeedsOCR(50) {
		t.Error("NeedsOCR does not follow the extracted text")
	}
}

func TestVerify(t *testing.T) {
	v := Verifier{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	ok, chars := v.Verify(writePDF(t, "Letter", sentence))
	if !ok || chars <= DefaultThreshold {
		t.Errorf("text document: ok=%v chars=%d", ok, chars)
	}

	ok, chars = v.Verify(writePDF(t, "Letter", "", ""))
	if ok || chars != 0 {
		t.Errorf("scanned document: ok=%v chars=%d", ok, chars)
	}

	ok, chars = v.Verify(writePDF(t, "Letter", "Short line"))
	if ok || chars == 0 {
		t.Errorf("short document: ok=%v chars=%d", ok, chars)
	}

	ok, chars = v.Verify(filepath.Join(t.TempDir(), "missing.pdf"))
	if ok || chars != 0 {
		t.Errorf("missing document: ok=%v chars=%d", ok, chars)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 this is not really a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected an error")
	}
}
