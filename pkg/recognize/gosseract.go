//go:build gosseract

package recognize

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/gardar/searchpdf/pkg/hocr"
	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// Gosseract runs libtesseract in process. A client is created per page
// because gosseract clients are not safe for concurrent use. The engine
// mode is the library default (OEM 3); Options.OEM is ignored.
type Gosseract struct {
	Options Options
}

func newGosseract(opts Options) (Engine, error) {
	return &Gosseract{Options: opts}, nil
}

func (g *Gosseract) Name() string { return EngineGosseract }

func (g *Gosseract) Close() error { return nil }

func (g *Gosseract) RecognizeHOCR(ctx context.Context, img *pdfocr.RenderedImage, lang string) (hocr.Page, error) {
	if err := ctx.Err(); err != nil {
		return hocr.Page{}, err
	}
	o := g.Options.withDefaults()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(lang); err != nil {
		return hocr.Page{}, fmt.Errorf("gosseract: set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(o.PSM)); err != nil {
		return hocr.Page{}, fmt.Errorf("gosseract: set page segmentation mode: %w", err)
	}
	if o.Allowlist != "" {
		if err := client.SetWhitelist(o.Allowlist); err != nil {
			return hocr.Page{}, fmt.Errorf("gosseract: set allowlist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(img.PNG); err != nil {
		return hocr.Page{}, fmt.Errorf("gosseract: set image: %w", err)
	}

	out, err := client.HOCRText()
	if err != nil {
		return hocr.Page{}, fmt.Errorf("gosseract: %w", err)
	}
	return parsePage([]byte(out), img)
}
