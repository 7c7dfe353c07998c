// Package raster renders PDF pages to images with poppler's pdftoppm.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/image/draw"

	"github.com/gardar/searchpdf/pkg/pdfocr"
)

const (
	DefaultFactor  = 3.0 // 216 DPI
	DefaultTimeout = 2 * time.Minute
)

// Rasterizer shells out to pdftoppm. It satisfies pdfocr.Rasterizer.
type Rasterizer struct {
	Binary  string        // Path or name of pdftoppm
	TempDir string        // Scratch directory, "" = os.TempDir()
	Timeout time.Duration // Per page, 0 = DefaultTimeout
	Logger  *slog.Logger
}

// New returns a Rasterizer using pdftoppm from PATH.
func New() *Rasterizer {
	return &Rasterizer{Binary: "pdftoppm"}
}

// Rasterize renders one page at 72*factor DPI. The returned image carries
// the pixel-to-PDF scale factors for that render.
func (r *Rasterizer) Rasterize(ctx context.Context, path string, page pdfocr.Page, factor float64) (*pdfocr.RenderedImage, error) {
	if factor <= 0 {
		factor = DefaultFactor
	}

	dir, err := os.MkdirTemp(r.TempDir, "raster-*")
	if err != nil {
		return nil, renderError(page, "cannot create scratch directory", err)
	}
	defer os.RemoveAll(dir)

	n := strconv.Itoa(page.Index + 1)
	prefix := filepath.Join(dir, "page")
	args := []string{
		"-png",
		"-r", strconv.FormatFloat(72*factor, 'f', -1, 64),
		"-f", n, "-l", n,
		"-singlefile",
		path, prefix,
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger().Debug("rendering page", "page", page.Index+1, "args", args)
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, renderError(page, fmt.Sprintf("pdftoppm: %s", bytes.TrimSpace(stderr.Bytes())), err)
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, renderError(page, "pdftoppm produced no image", err)
	}
	return NewRenderedImage(data, page, factor)
}

// NewRenderedImage decodes PNG data rendered from page at factor.
func NewRenderedImage(data []byte, page pdfocr.Page, factor float64) (*pdfocr.RenderedImage, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, renderError(page, "cannot decode rendered page", err)
	}
	rgba := ToRGBA(src)
	b := rgba.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, renderError(page, "rendered page is empty", nil)
	}

	xs, ys := pdfocr.ScaleFactors(page, b.Dx(), b.Dy(), factor)
	return &pdfocr.RenderedImage{
		PageIndex: page.Index,
		Image:     rgba,
		PNG:       data,
		Factor:    factor,
		XScale:    xs,
		YScale:    ys,
	}, nil
}

// ToRGBA converts any image to RGBA with its origin at (0, 0).
func ToRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func renderError(page pdfocr.Page, msg string, err error) error {
	return pdfocr.NewError(pdfocr.ErrRender, "rasterize",
		fmt.Sprintf("page %d: %s", page.Index+1, msg), err)
}

func (r *Rasterizer) binary() string {
	if r.Binary == "" {
		return "pdftoppm"
	}
	return r.Binary
}

func (r *Rasterizer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
