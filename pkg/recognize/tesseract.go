package recognize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gardar/searchpdf/pkg/hocr"
	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// Tesseract runs the tesseract command line tool with hOCR output.
type Tesseract struct {
	Binary  string // "" = "tesseract"
	Options Options
	Timeout time.Duration // Per page, 0 = no limit beyond ctx
	TempDir string
}

func (t *Tesseract) Name() string { return EngineTesseract }

func (t *Tesseract) Close() error { return nil }

// Args returns the tesseract arguments for an image at input, writing
// hOCR to stdout.
func (t *Tesseract) Args(input, lang string) []string {
	o := t.Options.withDefaults()
	args := []string{
		input, "stdout",
		"-l", lang,
		"--oem", strconv.Itoa(o.OEM),
		"--psm", strconv.Itoa(o.PSM),
	}
	if o.Allowlist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+o.Allowlist)
	}
	return append(args, "hocr")
}

func (t *Tesseract) RecognizeHOCR(ctx context.Context, img *pdfocr.RenderedImage, lang string) (hocr.Page, error) {
	dir, err := os.MkdirTemp(t.TempDir, "tesseract-*")
	if err != nil {
		return hocr.Page{}, err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "page.png")
	if err := os.WriteFile(input, img.PNG, 0o600); err != nil {
		return hocr.Page{}, fmt.Errorf("write page image: %w", err)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	binary := t.Binary
	if binary == "" {
		binary = "tesseract"
	}
	cmd := exec.CommandContext(ctx, binary, t.Args(input, lang)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return hocr.Page{}, fmt.Errorf("tesseract: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return parsePage(stdout.Bytes(), img)
}

// parsePage reads the single page of an engine's hOCR output. Output
// without a page means nothing was recognized.
func parsePage(data []byte, img *pdfocr.RenderedImage) (hocr.Page, error) {
	empty := hocr.Page{BBox: hocr.NewBoundingBox(0, 0, float64(img.Width()), float64(img.Height()))}
	if len(bytes.TrimSpace(data)) == 0 {
		return empty, nil
	}
	doc, err := hocr.ParseHOCR(data)
	if err != nil {
		// ParseHOCR only fails on malformed html or when no page is present.
		if !bytes.Contains(data, []byte("ocr_page")) {
			return empty, nil
		}
		return hocr.Page{}, fmt.Errorf("parse hOCR: %w", err)
	}
	return doc.Pages[0], nil
}
