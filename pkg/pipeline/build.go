package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gardar/searchpdf/pkg/config"
	"github.com/gardar/searchpdf/pkg/ocrmypdf"
	"github.com/gardar/searchpdf/pkg/pdfocr"
	"github.com/gardar/searchpdf/pkg/pdftext"
	"github.com/gardar/searchpdf/pkg/raster"
	"github.com/gardar/searchpdf/pkg/recognize"
)

// Stage names reported as the processing method.
const (
	StageOCRmyPDF  = "OCRmyPDF"
	StageTextLayer = "Invisible text layer"
)

// Built is a Processor wired from configuration together with the
// recognizer of its text layer stage.
type Built struct {
	*Processor
	Recognizer *recognize.Recognizer
}

// Close releases the recognition engine.
func (b *Built) Close() error {
	return b.Recognizer.Close()
}

// FromConfig wires the OCRmyPDF stage (unless disabled) followed by the
// text layer stage.
func FromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Built, error) {
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := recognize.New(ctx, recognize.Config{
		Engine:     cfg.OCR.Engine,
		Strict:     cfg.OCR.Strict,
		Timeout:    cfg.OCR.Timeout,
		DocumentAI: cfg.DocumentAI,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr engine: %w", err)
	}
	rec := recognize.NewRecognizer(engine, logger)

	rasterizer := &raster.Rasterizer{Binary: "pdftoppm", Timeout: cfg.OCR.Timeout, Logger: logger}
	synth := pdfocr.NewSynthesizer(pdftext.Reader{}, rasterizer, rec,
		pdfocr.OCRConfig{
			LayerName:     cfg.OCR.LayerName,
			Language:      cfg.OCR.Language,
			RenderFactor:  cfg.OCR.RenderFactor,
			MinPageChars:  cfg.OCR.MinPageChars,
			MinConfidence: cfg.OCR.MinConfidence,
			Workers:       cfg.OCR.PageWorkers,
			Force:         cfg.OCR.Force,
			Debug:         cfg.OCR.Debug,
			Logger:        logger,
			Font:          pdfocr.DefaultFont,
		})

	var stages []Stage
	if !cfg.OCR.DisableOCRmyPDF {
		ocr := cfg.OCRmyPDF
		if ocr.Language == "" {
			ocr.Language = cfg.OCR.Language
		}
		stages = append(stages, Stage{Name: StageOCRmyPDF, Strategy: ocrmypdf.New(ocr, nil, logger)})
	}
	stages = append(stages, Stage{Name: StageTextLayer, Strategy: synth})

	return &Built{
		Processor: &Processor{
			Stages:   stages,
			Verifier: pdftext.Verifier{Logger: logger},
			MaxBytes: cfg.Server.MaxUploadBytes,
			Logger:   logger,
		},
		Recognizer: rec,
	}, nil
}
