package pdfocr

import (
	"log/slog"
	"runtime"
)

// OCRConfig holds user options for synthesizing an OCR text layer
type OCRConfig struct {
	Debug         bool         // Draw the recognized text in red instead of hiding it
	Force         bool         // Reapply OCR even if our layer already exists
	LayerName     string       // Base name of OCR layer (page number will be appended)
	Language      string       // Recognition language, e.g. "eng"
	RenderFactor  float64      // Supersampling factor used when rasterizing pages
	MinPageChars  int          // Pages with at least this many extractable chars are left alone
	MinConfidence float64      // Words at or below this confidence are dropped
	Workers       int          // Pages rasterized and recognized concurrently
	StartPage     int          // ApplyOCR: PDF page (1-based) the first hOCR page applies to
	Logger        *slog.Logger // nil = slog.Default()
	Font          FontConfig
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() OCRConfig {
	return OCRConfig{
		LayerName:     "OCR Text", // Will be formatted as "OCR Text (Page X)" in the final PDF
		Language:      "eng",
		RenderFactor:  3.0, // 216 DPI
		MinPageChars:  50,
		MinConfidence: 40,
		Workers:       runtime.NumCPU(),
		Font:          DefaultFont,
	}
}

func (c OCRConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c OCRConfig) withDefaults() OCRConfig {
	d := DefaultConfig()
	if c.LayerName == "" {
		c.LayerName = d.LayerName
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.RenderFactor <= 0 {
		c.RenderFactor = d.RenderFactor
	}
	if c.MinPageChars <= 0 {
		c.MinPageChars = d.MinPageChars
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Font.Name == "" {
		c.Font = d.Font
	}
	return c
}

// FontConfig contains font settings for OCR text rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Share of the font size above the baseline
	SizeRatio   float64 // Font size as a share of the mapped box height
	MinSize     float64 // Lower clamp for calibrated font sizes
	MaxSize     float64 // Upper clamp for calibrated font sizes
}

// DefaultFont sets the default font to Helvetica which is tried and tested for the OCR layer
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
	SizeRatio:   0.85,
	MinSize:     4,
	MaxSize:     72,
}
