// pdfocr is a command-line tool for making scanned PDFs searchable.
//
// By default the tool runs the same pipeline as the service: OCRmyPDF
// first, then the invisible text layer fallback. With -hocr it skips
// recognition and applies an existing hOCR file to the PDF instead.
//
// Usage:
//
//	pdfocr -input scan.pdf -output scan_searchable.pdf [options]
//
// Required flags:
//
//	-input string     Path to the PDF to make searchable
//	-output string    Output PDF path
//
// Recognition options:
//
//	-engine string    OCR engine for the text layer: tesseract, gosseract, documentai
//	-lang string      Recognition language (default "eng")
//	-no-ocrmypdf      Skip OCRmyPDF and go straight to the text layer
//	-hocr-out string  Also write the recognized words as hOCR
//	-config string    YAML config file (same format as pdfocrd)
//
// hOCR options:
//
//	-hocr string      Apply this hOCR file instead of recognizing
//	-start-page int   PDF page the first hOCR page applies to (default 1)
//
// Output options:
//
//	-force            Reapply OCR even if our layer already exists
//	-overwrite        Overwrite the output PDF if it exists
//	-debug            Draw the text layer visibly and log PDF structure
//
// Examples:
//
// Make a scan searchable:
//
//	pdfocr -input scan.pdf -output scan_searchable.pdf
//
// Add an OCR layer from an hOCR file produced elsewhere:
//
//	pdfocr -input scan.pdf -hocr scan.hocr -output scan_searchable.pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gardar/searchpdf/pkg/config"
	"github.com/gardar/searchpdf/pkg/hocr"
	"github.com/gardar/searchpdf/pkg/pdfocr"
	"github.com/gardar/searchpdf/pkg/pdftext"
	"github.com/gardar/searchpdf/pkg/pipeline"
)

type options struct {
	input, output string
	configPath    string
	engine, lang  string
	noOCRmyPDF    bool
	hocrIn        string
	hocrOut       string
	startPage     int
	force         bool
	overwrite     bool
	debug         bool
}

func main() {
	var o options
	flag.StringVar(&o.input, "input", "", "Path to the PDF to make searchable")
	flag.StringVar(&o.output, "output", "", "Output PDF path")
	flag.StringVar(&o.configPath, "config", "", "YAML config file")
	flag.StringVar(&o.engine, "engine", "", "OCR engine for the text layer (tesseract, gosseract, documentai)")
	flag.StringVar(&o.lang, "lang", "", "Recognition language")
	flag.BoolVar(&o.noOCRmyPDF, "no-ocrmypdf", false, "Skip OCRmyPDF")
	flag.StringVar(&o.hocrIn, "hocr", "", "Apply this hOCR file instead of recognizing")
	flag.StringVar(&o.hocrOut, "hocr-out", "", "Write the recognized words as hOCR")
	flag.IntVar(&o.startPage, "start-page", 1, "PDF page (1-based) the first hOCR page applies to")
	flag.BoolVar(&o.force, "force", false, "Force reapply OCR even if an OCR layer is already detected")
	flag.BoolVar(&o.overwrite, "overwrite", false, "Overwrite the output PDF if it already exists")
	flag.BoolVar(&o.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if o.input == "" || o.output == "" {
		fmt.Fprintln(os.Stderr, "Error: Must provide -input and -output")
		flag.Usage()
		os.Exit(2)
	}
	if _, err := os.Stat(o.output); err == nil {
		if !o.overwrite {
			fmt.Fprintf(os.Stderr, "Output file %s already exists. Use -overwrite to overwrite.\n", o.output)
			os.Exit(1)
		}
		os.Remove(o.output)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if o.hocrIn != "" {
		err = applyHOCR(o, logger)
	} else {
		err = process(ctx, o, logger)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", pdfocr.Diagnostic(err))
		os.Exit(1)
	}
	fmt.Println("OCR-enhanced PDF created:", o.output)
}

// process runs the full pipeline on the input.
func process(ctx context.Context, o options, logger *slog.Logger) error {
	cfg, err := config.Load(o.configPath, "")
	if err != nil {
		return err
	}
	if o.engine != "" {
		cfg.OCR.Engine = o.engine
	}
	if o.lang != "" {
		cfg.OCR.Language = o.lang
		cfg.OCRmyPDF.Language = o.lang
	}
	cfg.OCR.DisableOCRmyPDF = cfg.OCR.DisableOCRmyPDF || o.noOCRmyPDF || o.hocrOut != ""
	cfg.OCR.Force = o.force
	cfg.OCR.Debug = o.debug
	if err := cfg.Validate(); err != nil {
		return err
	}

	built, err := pipeline.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer built.Close()
	built.Recognizer.KeepHOCR = o.hocrOut != ""

	res, err := built.Process(ctx, o.input, o.output)
	if err != nil {
		return err
	}
	logger.Info("done",
		"stage", res.Stage,
		"strategy", res.Method,
		"has_selectable_text", res.HasSelectableText,
		"character_count", res.CharacterCount)

	if o.hocrOut != "" {
		return writeHOCR(o.hocrOut, built.Recognizer.HOCR())
	}
	return nil
}

// applyHOCR adds a layer from an existing hOCR file.
func applyHOCR(o options, logger *slog.Logger) error {
	data, err := os.ReadFile(o.input)
	if err != nil {
		return fmt.Errorf("read input PDF: %w", err)
	}
	hocrData, err := os.ReadFile(o.hocrIn)
	if err != nil {
		return fmt.Errorf("read hOCR file: %w", err)
	}

	doc, err := pdftext.Open(o.input)
	if err != nil {
		return err
	}
	pages, err := doc.Pages()
	doc.Close()
	if err != nil {
		return err
	}

	cfg := pdfocr.DefaultConfig()
	cfg.Force = o.force
	cfg.Debug = o.debug
	cfg.StartPage = o.startPage
	cfg.Logger = logger

	out, err := pdfocr.ApplyOCR(data, pages, hocrData, cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(o.output, out, 0o644)
}

func writeHOCR(path string, doc *hocr.HOCR) error {
	if len(doc.Pages) == 0 {
		return errors.New("no pages were recognized; every page already carries text")
	}
	out, err := hocr.GenerateHOCRDocument(doc)
	if err != nil {
		return fmt.Errorf("generate hOCR: %w", err)
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
