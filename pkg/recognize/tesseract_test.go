package recognize

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os/exec"
	"slices"
	"testing"

	"github.com/gardar/searchpdf/pkg/pdfocr"
)

func TestTesseractArgs(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults",
			want: []string{"in.png", "stdout", "-l", "eng", "--oem", "3", "--psm", "6", "hocr"},
		},
		{
			name: "strict",
			opts: StrictOptions(),
			want: []string{"in.png", "stdout", "-l", "eng", "--oem", "3", "--psm", "6",
				"-c", "tessedit_char_whitelist=" + StrictAllowlist, "hocr"},
		},
		{
			name: "sparse text",
			opts: Options{PSM: 11},
			want: []string{"in.png", "stdout", "-l", "eng", "--oem", "3", "--psm", "11", "hocr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := (&Tesseract{Options: tt.opts}).Args("in.png", "eng")
			if !slices.Equal(got, tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePageWithoutOutput(t *testing.T) {
	img := testImage(0)
	for _, data := range []string{"", "  \n", "<html><body></body></html>"} {
		page, err := parsePage([]byte(data), img)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", data, err)
		}
		if len(page.Words()) != 0 {
			t.Fatalf("%q: expected no words", data)
		}
		if page.BBox.Width() != 300 || page.BBox.Height() != 200 {
			t.Fatalf("%q: page bbox %+v does not match the image", data, page.BBox)
		}
	}
}

func TestParsePage(t *testing.T) {
	data := `<html><body>
<div class="ocr_page" title="bbox 0 0 300 200; ppageno 0">
 <span class="ocr_line" title="bbox 10 20 130 42">
  <span class="ocrx_word" title="bbox 10 20 60 40; x_wconf 93">Invoice</span>
  <span class="ocrx_word" title="bbox 70 20 130 42; x_wconf 12">#42</span>
 </span>
</div></body></html>`

	page, err := parsePage([]byte(data), testImage(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := page.Words()
	if len(words) != 2 || words[0].Text != "Invoice" || words[1].Confidence != 12 {
		t.Fatalf("unexpected words %+v", words)
	}
}

func TestTesseractBlankPage(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}

	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			src.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img := &pdfocr.RenderedImage{Image: src, PNG: buf.Bytes(), Factor: 1}

	page, err := (&Tesseract{TempDir: t.TempDir()}).RecognizeHOCR(context.Background(), img, "eng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(page.Words()); n != 0 {
		t.Fatalf("blank page produced %d words", n)
	}
}
