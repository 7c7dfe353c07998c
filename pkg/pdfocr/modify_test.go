package pdfocr

import (
	"bytes"
	"errors"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// scannedPDF builds an n-page Letter document with a drawing and no text.
func scannedPDF(t *testing.T, n int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	for i := 0; i < n; i++ {
		pdf.AddPage()
		pdf.Rect(72, 72, 200, 100, "F")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	return buf.Bytes()
}

func letterPages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Index: i, Width: 612, Height: 792}
	}
	return pages
}

func TestFpdfCanvasWritesLayers(t *testing.T) {
	src := scannedPDF(t, 2)
	canvas := NewFpdfCanvas(src, DefaultFont, false)
	pages := letterPages(2)

	if err := canvas.CopyPage(pages[0]); err != nil {
		t.Fatalf("CopyPage: %v", err)
	}
	if err := canvas.BeginPage(pages[1], layerTitle("OCR Text", 2)); err != nil {
		t.Fatalf("BeginPage: %v", err)
	}
	stats := DefaultChain(DefaultFont).Insert(canvas, []MappedWord{
		{Text: "Invoice", Rect: Rect{X0: 100, Y0: 100, X1: 160, Y1: 112}, FontSize: 10, X: 100, Y: 692},
	})
	if stats.Methods["content stream injection"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if err := canvas.EndPage(); err != nil {
		t.Fatalf("EndPage: %v", err)
	}

	var out bytes.Buffer
	if err := canvas.Save(&out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}

	check, err := CheckExistingOCRLayers(out.Bytes(), "OCR Text")
	if err != nil {
		t.Fatalf("CheckExistingOCRLayers: %v", err)
	}
	if !check.HasOCRLayer {
		t.Fatalf("layer not found, layers: %q", check.Layers)
	}
}

func TestFpdfCanvasWordPrimitives(t *testing.T) {
	canvas := NewFpdfCanvas(scannedPDF(t, 1), DefaultFont, false)
	if err := canvas.BeginPage(letterPages(1)[0], "OCR Text (Page 1)"); err != nil {
		t.Fatalf("BeginPage: %v", err)
	}
	w := MappedWord{Text: "Þökk", Rect: Rect{X0: 100, Y0: 100, X1: 160, Y1: 112}, FontSize: 10, X: 100, Y: 692}

	if err := canvas.AddWidget(w); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("AddWidget: %v", err)
	}
	if err := canvas.AddTextAnnotation(w); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("AddTextAnnotation: %v", err)
	}
	if err := canvas.ShowInvisibleText(w); err != nil {
		t.Fatalf("ShowInvisibleText: %v", err)
	}
	if err := canvas.AddTextBox(w); err != nil {
		t.Fatalf("AddTextBox: %v", err)
	}
	if err := canvas.Save(&bytes.Buffer{}); err != nil {
		t.Fatalf("Save with an open layer: %v", err)
	}
}

const applyHOCR = `<html><body>
<div class="ocr_page" title="bbox 0 0 1836 2376; ppageno 0">
 <span class="ocr_line" title="bbox 300 300 900 360">
  <span class="ocrx_word" title="bbox 300 300 600 360; x_wconf 93">Quarterly</span>
  <span class="ocrx_word" title="bbox 620 300 900 360">Report</span>
 </span>
</div></body></html>`

func TestApplyOCR(t *testing.T) {
	src := scannedPDF(t, 2)
	cfg := testConfig()
	cfg.StartPage = 2

	out, err := ApplyOCR(src, letterPages(2), []byte(applyHOCR), cfg)
	if err != nil {
		t.Fatalf("ApplyOCR: %v", err)
	}
	check, _ := CheckExistingOCRLayers(out, "OCR Text")
	if !check.HasOCRLayer || check.OCRLayerName != "OCR Text (Page 2)" {
		t.Fatalf("layer check = %+v", check)
	}

	if _, err := ApplyOCR(out, letterPages(2), []byte(applyHOCR), cfg); !errors.Is(err, ErrInputValidation) {
		t.Fatalf("reapplying without force: %v", err)
	}
	cfg.Force = true
	if _, err := ApplyOCR(out, letterPages(2), []byte(applyHOCR), cfg); err != nil {
		t.Fatalf("reapplying with force: %v", err)
	}
}

func TestApplyOCRValidation(t *testing.T) {
	src := scannedPDF(t, 1)
	cfg := testConfig()

	tests := []struct {
		name  string
		src   []byte
		pages []Page
		hocr  any
	}{
		{"empty pdf", nil, letterPages(1), []byte(applyHOCR)},
		{"too few pdf pages", src, letterPages(1), []byte(applyHOCR + applyHOCR)},
		{"unsupported input", src, letterPages(1), "not hocr"},
		{"no pages", src, letterPages(1), []byte("<html></html>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ApplyOCR(tt.src, tt.pages, tt.hocr, cfg); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLayerTitle(t *testing.T) {
	if got := layerTitle("OCR Text", 3); got != "OCR Text (Page 3)" {
		t.Fatalf("got %q", got)
	}
	if got := layerTitle("OCR Text", 0); got != "OCR Text" {
		t.Fatalf("got %q", got)
	}
}
