package recognize

import (
	"context"
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/searchpdf/pkg/gdocai"
	"github.com/gardar/searchpdf/pkg/hocr"
	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// processor is the part of gdocai.Client the engine needs.
type processor interface {
	Process(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error)
	Close() error
}

// DocumentAI sends each rendered page to a Document AI OCR processor.
// The language hint is left to the processor.
type DocumentAI struct {
	client processor
}

// NewDocumentAI connects to the processor named by cfg.
func NewDocumentAI(ctx context.Context, cfg gdocai.Config) (*DocumentAI, error) {
	client, err := gdocai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DocumentAI{client: client}, nil
}

func (d *DocumentAI) Name() string { return EngineDocumentAI }

func (d *DocumentAI) Close() error { return d.client.Close() }

func (d *DocumentAI) RecognizeHOCR(ctx context.Context, img *pdfocr.RenderedImage, _ string) (hocr.Page, error) {
	doc, err := d.client.Process(ctx, img.PNG, "image/png")
	if err != nil {
		return hocr.Page{}, err
	}
	converted := gdocai.CreateHOCRStruct(doc)
	if len(converted.Pages) == 0 {
		return hocr.Page{BBox: hocr.NewBoundingBox(0, 0, float64(img.Width()), float64(img.Height()))}, nil
	}
	if len(converted.Pages) > 1 {
		return hocr.Page{}, fmt.Errorf("document ai returned %d pages for one image", len(converted.Pages))
	}
	return converted.Pages[0], nil
}
