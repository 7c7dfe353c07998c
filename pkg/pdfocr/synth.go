package pdfocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// MethodTextLayer is the method reported when the synthesizer wrote a layer.
const MethodTextLayer = "invisible text layer"

// PageSource lists the pages of a PDF with their geometry and existing text.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]Page, error)
}

// Rasterizer renders one page to pixels.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, page Page, factor float64) (*RenderedImage, error)
}

// Recognizer returns the words found in a rendered page.
type Recognizer interface {
	Recognize(ctx context.Context, img *RenderedImage, lang string) ([]WordBox, error)
}

// CanvasFunc opens an output canvas over the source PDF bytes.
type CanvasFunc func(src []byte, config OCRConfig) Canvas

// FpdfCanvasFunc is the default CanvasFunc.
func FpdfCanvasFunc(src []byte, config OCRConfig) Canvas {
	return NewFpdfCanvas(src, config.Font, config.Debug)
}

// Synthesizer adds an invisible text layer to the pages of a PDF that have
// too little extractable text.
type Synthesizer struct {
	Pages      PageSource
	Rasterizer Rasterizer
	Recognizer Recognizer
	NewCanvas  CanvasFunc // nil = FpdfCanvasFunc
	Chain      *Chain     // nil = DefaultChain(Config.Font), visible when Config.Debug
	Config     OCRConfig
}

// NewSynthesizer wires a Synthesizer with the default canvas and chain.
func NewSynthesizer(pages PageSource, rasterizer Rasterizer, recognizer Recognizer, config OCRConfig) *Synthesizer {
	return &Synthesizer{
		Pages:      pages,
		Rasterizer: rasterizer,
		Recognizer: recognizer,
		Config:     config,
	}
}

// PageReport describes what happened to one page.
type PageReport struct {
	Page     int    // 1-based page number
	NeedsOCR bool   // Page had too little text
	Error    string // Render or recognition failure, page left unchanged
	Stats    PageStats
}

// Report is the outcome of a synthesis run.
type Report struct {
	Result StrategyResult
	Pages  []PageReport
}

// Attempt runs Synthesize and folds any error into the StrategyResult.
func (s *Synthesizer) Attempt(ctx context.Context, inputPath, outputPath string) StrategyResult {
	report, err := s.Synthesize(ctx, inputPath, outputPath)
	if err != nil {
		return Failed(MethodTextLayer, Diagnostic(err))
	}
	return report.Result
}

// Synthesize reads inputPath and writes outputPath. Pages that already
// carry enough text are copied as they are; every other page gets an OCR
// layer built from the recognized words. The input file is never modified.
// If no page needs OCR the input bytes are copied verbatim.
func (s *Synthesizer) Synthesize(ctx context.Context, inputPath, outputPath string) (Report, error) {
	cfg := s.Config.withDefaults()
	logger := cfg.logger()

	src, err := os.ReadFile(inputPath)
	if err != nil {
		return Report{}, NewError(ErrStrategy, "synthesize", "cannot open source document", err)
	}
	if cfg.Debug {
		logPDFStructure(logger, src, 2000)
	}

	pages, err := s.Pages.Pages(ctx, inputPath)
	if err != nil {
		return Report{}, NewError(ErrStrategy, "synthesize", "cannot read source pages", err)
	}
	if len(pages) == 0 {
		return Report{}, NewError(ErrStrategy, "synthesize", "document has no pages", nil)
	}

	detection := DetectOCR(src, cfg)
	for _, w := range detection.Warnings {
		logger.Warn(w)
	}

	reports := make([]PageReport, len(pages))
	needed := 0
	for i, p := range pages {
		reports[i] = PageReport{Page: i + 1, NeedsOCR: p.NeedsOCR(cfg.MinPageChars)}
		if reports[i].NeedsOCR {
			needed++
		}
	}

	if detection.HasOCR && !cfg.Force {
		logger.Info("document already has an OCR layer, copying unchanged",
			"layer", detection.LayerInfo.OCRLayerName)
		needed = 0
	}
	if needed == 0 {
		if err := writeFileAtomic(outputPath, func(w io.Writer) error {
			_, err := w.Write(src)
			return err
		}); err != nil {
			return Report{}, NewError(ErrPersistence, "synthesize", "cannot write output document", err)
		}
		return Report{Result: Succeeded("no OCR needed"), Pages: reports}, nil
	}

	words, err := s.recognizePages(ctx, inputPath, pages, reports, cfg)
	if err != nil {
		return Report{}, err
	}

	canvas := s.canvasFunc()(src, cfg)
	stats, err := writeLayers(canvas, s.chain(cfg), pages, words, cfg)
	if err != nil {
		return Report{}, err
	}
	for i := range reports {
		reports[i].Stats = stats[i]
	}

	if err := writeFileAtomic(outputPath, canvas.Save); err != nil {
		return Report{}, NewError(ErrPersistence, "synthesize", "cannot save output document", err)
	}
	return Report{Result: Succeeded(MethodTextLayer), Pages: reports}, nil
}

// recognizePages rasterizes and recognizes every page that needs OCR,
// bounded by cfg.Workers. A page that fails is logged, recorded in its
// report and left without words.
func (s *Synthesizer) recognizePages(
	ctx context.Context,
	inputPath string,
	pages []Page,
	reports []PageReport,
	cfg OCRConfig,
) ([][]MappedWord, error) {
	logger := cfg.logger()
	words := make([][]MappedWord, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, p := range pages {
		if !reports[i].NeedsOCR {
			continue
		}
		i, p := i, p // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			mapped, err := s.recognizePage(gctx, inputPath, p, cfg)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("page left unchanged", "page", i+1, "error", err)
				reports[i].Error = err.Error()
				return nil
			}
			words[i] = mapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, NewError(ErrStrategy, "synthesize", "recognition cancelled", err)
	}

	total, unencodable := 0, 0
	for _, ws := range words {
		for _, w := range ws {
			total++
			if _, ok := encodeLatin1(w.Text); !ok {
				unencodable++
			}
		}
	}
	if total > 0 && unencodable > total/10 {
		logger.Warn("character encoding issues", "words", total, "unencodable", unencodable)
	}
	return words, nil
}

func (s *Synthesizer) recognizePage(ctx context.Context, inputPath string, p Page, cfg OCRConfig) ([]MappedWord, error) {
	img, err := s.Rasterizer.Rasterize(ctx, inputPath, p, cfg.RenderFactor)
	if err != nil {
		if !errors.Is(err, ErrRender) {
			err = NewError(ErrRender, "rasterize", fmt.Sprintf("page %d", p.Index+1), err)
		}
		return nil, err
	}

	boxes, err := s.Recognizer.Recognize(ctx, img, cfg.Language)
	if err != nil {
		if !errors.Is(err, ErrRecognition) {
			err = NewError(ErrRecognition, "recognize", fmt.Sprintf("page %d", p.Index+1), err)
		}
		return nil, err
	}

	m := Mapper{
		XScale:        img.XScale,
		YScale:        img.YScale,
		PageHeight:    p.Height,
		MinConfidence: cfg.MinConfidence,
		Font:          cfg.Font,
	}
	return m.MapWords(boxes), nil
}

// writeLayers adds every page to canvas in order. Pages with words get an
// OCR layer filled through chain; the others are copied as they are.
func writeLayers(canvas Canvas, chain Chain, pages []Page, words [][]MappedWord, cfg OCRConfig) ([]PageStats, error) {
	logger := cfg.logger()
	stats := make([]PageStats, len(pages))
	for i, p := range pages {
		if len(words[i]) == 0 {
			if err := canvas.CopyPage(p); err != nil {
				return nil, NewError(ErrStrategy, "synthesize", "cannot copy page", err)
			}
			continue
		}

		if err := canvas.BeginPage(p, layerTitle(cfg.LayerName, i+1)); err != nil {
			return nil, NewError(ErrStrategy, "synthesize", "cannot open page layer", err)
		}
		stats[i] = chain.Insert(canvas, words[i])
		if err := canvas.EndPage(); err != nil {
			return nil, NewError(ErrStrategy, "synthesize", "cannot close page layer", err)
		}
		logger.Info("text layer written",
			"page", i+1,
			"words", stats[i].Words,
			"inserted", stats[i].Inserted,
			"skipped", stats[i].Skipped)
	}
	return stats, nil
}

func (s *Synthesizer) canvasFunc() CanvasFunc {
	if s.NewCanvas == nil {
		return FpdfCanvasFunc
	}
	return s.NewCanvas
}

func (s *Synthesizer) chain(cfg OCRConfig) Chain {
	if s.Chain == nil {
		return chainFor(cfg)
	}
	return *s.Chain
}

// writeFileAtomic writes through a temporary file in the target directory
// and renames it into place, so a failed write leaves no partial output.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
