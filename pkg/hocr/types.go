package hocr

// HOCR represents the entire hOCR document structure
type HOCR struct {
	Title       string            // Document title
	Description string            // Document description
	Language    string            // Document language
	Metadata    map[string]string // ocr-system, ocr-capabilities and similar meta tags
	Pages       []Page
}

// Page is one page of recognized text (class 'ocr_page'). Its BBox is
// the size of the image the words were recognized on.
type Page struct {
	ID         string
	Title      string // Original title attribute
	PageNumber int    // ppageno property
	ImageName  string // Source image filename
	Lang       string
	BBox       BoundingBox
	Areas      []Area
	Paragraphs []Paragraph // Paragraphs directly under page
	Lines      []Line      // Lines directly under page
	Metadata   map[string]string
}

// Area is a content area or column (class 'ocr_carea')
type Area struct {
	ID         string
	Lang       string
	BBox       BoundingBox
	Paragraphs []Paragraph
	Lines      []Line // Lines directly under area
	Words      []Word // Words directly under area
	Metadata   map[string]string
}

// Paragraph is a paragraph (class 'ocr_par')
type Paragraph struct {
	ID       string
	Lang     string
	BBox     BoundingBox
	Lines    []Line
	Words    []Word // Words directly under paragraph
	Metadata map[string]string
}

// Line is a line of text (class 'ocr_line', 'ocr_header', 'ocr_caption'
// or 'ocr_textfloat')
type Line struct {
	ID       string
	Lang     string
	BBox     BoundingBox
	Baseline string // Raw baseline property, e.g. "0.002 -5"
	Words    []Word
	Metadata map[string]string
}

// Word is a recognized word with bounding box (class 'ocrx_word')
type Word struct {
	ID         string
	Text       string
	BBox       BoundingBox
	Confidence float64 // x_wconf, 0-100, or -1 when absent
	Lang       string
	Metadata   map[string]string
}

// BoundingBox is an hOCR 'bbox' in image pixels, top-left origin
type BoundingBox struct {
	X1 float64 // Left coordinate
	Y1 float64 // Top coordinate
	X2 float64 // Right coordinate
	Y2 float64 // Bottom coordinate
}

// NewBoundingBox creates a bounding box from the x1, y1, x2, y2 order
// used by the bbox property.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (b BoundingBox) Width() float64  { return b.X2 - b.X1 }
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }
