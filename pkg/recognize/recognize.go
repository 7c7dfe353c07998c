// Package recognize runs OCR engines over rendered pages and returns
// word boxes in pixel space.
//
// Every engine reports hOCR, so boxes, confidences and the optional hOCR
// export all come from one representation regardless of the engine.
//
// Engines:
//
// - tesseract: the tesseract command line tool (default)
// - gosseract: libtesseract through cgo, built with -tags gosseract
// - documentai: Google Document AI
package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gardar/searchpdf/pkg/hocr"
	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// StrictAllowlist restricts recognition to letters, digits and common
// punctuation.
const StrictAllowlist = `ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789.,!?:;-()[]{}"' `

// Tesseract operating modes.
const (
	PSMSingleBlock = 6 // Assume a single uniform block of text
	OEMDefault     = 3 // Legacy + LSTM, whichever is available
)

// Engine names accepted by New.
const (
	EngineTesseract  = "tesseract"
	EngineGosseract  = "gosseract"
	EngineDocumentAI = "documentai"
)

// ErrEngineUnavailable is returned by New for an engine that is not
// compiled in or not configured.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Options configure the engines.
type Options struct {
	PSM       int    // Page segmentation mode, 0 = PSMSingleBlock
	OEM       int    // OCR engine mode, 0 = OEMDefault
	Allowlist string // Characters the engine may emit, "" = any
}

// StrictOptions returns the options of the stricter recognition variant.
func StrictOptions() Options {
	return Options{PSM: PSMSingleBlock, OEM: OEMDefault, Allowlist: StrictAllowlist}
}

func (o Options) withDefaults() Options {
	if o.PSM == 0 {
		o.PSM = PSMSingleBlock
	}
	if o.OEM == 0 {
		o.OEM = OEMDefault
	}
	return o
}

// Engine recognizes one page image and reports it as an hOCR page whose
// coordinates are pixels of that image.
type Engine interface {
	Name() string
	RecognizeHOCR(ctx context.Context, img *pdfocr.RenderedImage, lang string) (hocr.Page, error)
	Close() error
}

// Recognizer adapts an Engine to pdfocr.Recognizer.
type Recognizer struct {
	// KeepHOCR retains the hOCR of every recognized page for HOCR. Leave it
	// off when one Recognizer serves many documents.
	KeepHOCR bool

	engine Engine
	logger *slog.Logger

	mu    sync.Mutex
	pages map[int]hocr.Page
}

// NewRecognizer wraps engine.
func NewRecognizer(engine Engine, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{engine: engine, logger: logger, pages: make(map[int]hocr.Page)}
}

// Recognize returns the words of img. An engine failure is reported as
// pdfocr.ErrRecognition; a page with no words is not an error.
func (r *Recognizer) Recognize(ctx context.Context, img *pdfocr.RenderedImage, lang string) ([]pdfocr.WordBox, error) {
	page, err := r.engine.RecognizeHOCR(ctx, img, lang)
	if err != nil {
		return nil, pdfocr.NewError(pdfocr.ErrRecognition, r.engine.Name(),
			fmt.Sprintf("page %d", img.PageIndex+1), err)
	}

	if r.KeepHOCR {
		r.mu.Lock()
		r.pages[img.PageIndex] = page
		r.mu.Unlock()
	}

	boxes := WordBoxes(page)
	r.logger.Debug("page recognized", "engine", r.engine.Name(), "page", img.PageIndex+1, "words", len(boxes))
	return boxes, nil
}

// HOCR returns the pages recognized so far as one document, ordered by
// page index. It is empty unless KeepHOCR is set.
func (r *Recognizer) HOCR() *hocr.HOCR {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := make([]int, 0, len(r.pages))
	for i := range r.pages {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	doc := &hocr.HOCR{
		Title:    "Document OCR",
		Metadata: map[string]string{"ocr-system": r.engine.Name()},
	}
	for _, i := range idx {
		p := r.pages[i]
		p.PageNumber = i
		doc.Pages = append(doc.Pages, p)
	}
	return doc
}

// Engine returns the wrapped engine.
func (r *Recognizer) Engine() Engine {
	return r.engine
}

// Close releases the engine.
func (r *Recognizer) Close() error {
	return r.engine.Close()
}

// WordBoxes flattens an hOCR page into pixel-space word boxes.
func WordBoxes(page hocr.Page) []pdfocr.WordBox {
	return pdfocr.HOCRWordBoxes(page)
}
