package pdfocr

import "image"

// Page is one page of a source document as seen by the synthesizer.
type Page struct {
	Index  int     // Zero-based page index
	Width  float64 // Width in PDF user-space units
	Height float64 // Height in PDF user-space units
	Text   string  // Text already extractable from the page (may be empty)
}

// NeedsOCR reports whether the page carries too little extractable text
// to be considered searchable already.
func (p Page) NeedsOCR(minChars int) bool {
	return len([]rune(trimSpace(p.Text))) < minChars
}

// RenderedImage is a page rendered to pixels at a supersampling factor.
type RenderedImage struct {
	PageIndex int         // Zero-based index of the source page
	Image     *image.RGBA // Pixel data, RGB(A)
	PNG       []byte      // Same image encoded as PNG for engines that want bytes
	Factor    float64     // Supersampling factor used for the render
	XScale    float64     // PDF units per (pixel / Factor) horizontally
	YScale    float64     // PDF units per (pixel / Factor) vertically
}

// Width returns the pixel width of the render.
func (r *RenderedImage) Width() int { return r.Image.Bounds().Dx() }

// Height returns the pixel height of the render.
func (r *RenderedImage) Height() int { return r.Image.Bounds().Dy() }

// ScaleFactors computes the pixel-to-PDF scale factors for a render of
// pixelW x pixelH pixels of a page at the given supersampling factor.
func ScaleFactors(page Page, pixelW, pixelH int, factor float64) (xScale, yScale float64) {
	xScale = page.Width / (float64(pixelW) / factor)
	yScale = page.Height / (float64(pixelH) / factor)
	return xScale, yScale
}

// WordBox is one token reported by a recognition engine, in pixel space.
type WordBox struct {
	Text       string  // Recognized text
	Confidence float64 // 0-100, or -1 when the engine reports none
	Left       float64 // Left edge in pixels
	Top        float64 // Top edge in pixels
	Width      float64 // Width in pixels
	Height     float64 // Height in pixels
}

// Rect is a rectangle in PDF space with a top-left origin (x grows right,
// y grows down), the convention used for widget and annotation placement.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// MappedWord is a WordBox converted into PDF space and ready for insertion.
type MappedWord struct {
	Text     string
	Rect     Rect    // Top-left origin rectangle
	FontSize float64 // Calibrated font size in points
	X        float64 // Insertion x in PDF space
	Y        float64 // Insertion y in PDF space (bottom-left origin), pageHeight - top*yScale
}

// StrategyResult reports the outcome of one strategy or technique attempt.
type StrategyResult struct {
	Success bool
	Method  string // Strategy or technique that produced the result
	Message string // Diagnostic, the failure reason when Success is false
}

// Succeeded builds a successful StrategyResult.
func Succeeded(method string) StrategyResult {
	return StrategyResult{Success: true, Method: method, Message: "Success using " + method}
}

// Failed builds an unsuccessful StrategyResult.
func Failed(method, message string) StrategyResult {
	return StrategyResult{Method: method, Message: message}
}
