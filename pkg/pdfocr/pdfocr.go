// Package pdfocr adds invisible OCR text layers to PDF documents.
//
// Pages that carry too little extractable text are rendered, recognized
// and overlaid with the recognized words in text rendering mode 3, so the
// document looks unchanged but becomes searchable and selectable. Each
// page's text lives in its own optional content group ("OCR Text (Page N)"),
// which compatible readers can toggle and which is used to detect documents
// that were already processed.
//
// Key Features:
//
// - Map word boxes from pixel space into PDF user space (Mapper)
// - Insert words through an ordered chain of techniques, skipping words
// no technique can place (Chain)
// - Run the whole render, recognize, map and write cycle (Synthesizer)
// - Apply an existing hOCR file to a PDF (ApplyOCR)
// - Detect existing OCR layers to prevent duplication (DetectOCR)
package pdfocr

import (
	"bytes"
	"fmt"

	"github.com/gardar/searchpdf/pkg/hocr"
)

// HOCRWordBoxes flattens an hOCR page into pixel-space word boxes in
// reading order.
func HOCRWordBoxes(page hocr.Page) []WordBox {
	words := page.Words()
	boxes := make([]WordBox, 0, len(words))
	for _, w := range words {
		boxes = append(boxes, WordBox{
			Text:       w.Text,
			Confidence: w.Confidence,
			Left:       w.BBox.X1,
			Top:        w.BBox.Y1,
			Width:      w.BBox.Width(),
			Height:     w.BBox.Height(),
		})
	}
	return boxes
}

// ApplyOCR overlays recognized text from hOCR onto an existing PDF. pages
// describes the PDF's pages in order; hOCR page i applies to PDF page
// StartPage+i. Each hOCR page is scaled from its bbox to the PDF page, and
// words without a confidence value are kept.
// It accepts either raw hOCR data ([]byte) or a parsed hOCR struct (*hocr.HOCR).
func ApplyOCR(inputPDFData []byte, pages []Page, hocrInput any, config OCRConfig) ([]byte, error) {
	var hocrStruct hocr.HOCR
	var err error

	switch h := hocrInput.(type) {
	case []byte:
		hocrStruct, err = hocr.ParseHOCR(h)
		if err != nil {
			return nil, fmt.Errorf("failed to parse HOCR data: %w", err)
		}
	case *hocr.HOCR:
		if h == nil {
			return nil, fmt.Errorf("HOCR struct is nil")
		}
		hocrStruct = *h
	default:
		return nil, fmt.Errorf("unsupported HOCR input type: %T", hocrInput)
	}

	cfg := config.withDefaults()
	logger := cfg.logger()

	if len(inputPDFData) == 0 {
		return nil, NewError(ErrInputValidation, "apply", "input PDF data is empty", nil)
	}
	if len(hocrStruct.Pages) == 0 {
		return nil, NewError(ErrInputValidation, "apply", "HOCR data contains no pages", nil)
	}
	start := max(cfg.StartPage, 1)
	if last := start - 1 + len(hocrStruct.Pages); last > len(pages) {
		return nil, NewError(ErrInputValidation, "apply",
			fmt.Sprintf("HOCR pages end at page %d but the PDF has %d pages", last, len(pages)), nil)
	}

	if cfg.Debug {
		logPDFStructure(logger, inputPDFData, 2000)
	}

	detection := DetectOCR(inputPDFData, cfg)
	for _, w := range detection.Warnings {
		logger.Warn(w)
	}
	if detection.HasOCR {
		if !cfg.Force {
			return nil, NewError(ErrInputValidation, "apply",
				fmt.Sprintf("file already has OCR (layer '%s'), use force to reapply", detection.LayerInfo.OCRLayerName), nil)
		}
		logger.Warn("file already has OCR, reapplying will duplicate OCR data")
	}

	words := make([][]MappedWord, len(pages))
	for i, hp := range hocrStruct.Pages {
		p := pages[start-1+i]
		if hp.BBox.Width() <= 0 || hp.BBox.Height() <= 0 {
			logger.Warn("hOCR page has no bbox, page left unchanged", "page", p.Index+1)
			continue
		}
		xs, ys := ScaleFactors(p, int(hp.BBox.Width()), int(hp.BBox.Height()), 1)
		boxes := HOCRWordBoxes(hp)
		for j := range boxes {
			if boxes[j].Confidence < 0 {
				boxes[j].Confidence = 100
			}
			boxes[j].Left -= hp.BBox.X1
			boxes[j].Top -= hp.BBox.Y1
		}
		m := Mapper{XScale: xs, YScale: ys, PageHeight: p.Height, MinConfidence: cfg.MinConfidence, Font: cfg.Font}
		words[start-1+i] = m.MapWords(boxes)
	}

	canvas := NewFpdfCanvas(inputPDFData, cfg.Font, cfg.Debug)
	if _, err := writeLayers(canvas, chainFor(cfg), pages, words, cfg); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := canvas.Save(&buf); err != nil {
		return nil, NewError(ErrPersistence, "apply", "cannot save output document", err)
	}
	return buf.Bytes(), nil
}
