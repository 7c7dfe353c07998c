package pdfocr

import "strings"

// Mapper converts pixel-space word boxes of one render into PDF space.
type Mapper struct {
	XScale        float64
	YScale        float64
	PageHeight    float64
	MinConfidence float64
	Font          FontConfig
}

// NewMapper returns a Mapper for a render of page with the given scale factors
// using the default confidence threshold and font calibration.
func NewMapper(page Page, xScale, yScale float64) Mapper {
	return Mapper{
		XScale:        xScale,
		YScale:        yScale,
		PageHeight:    page.Height,
		MinConfidence: DefaultConfig().MinConfidence,
		Font:          DefaultFont,
	}
}

// MapWord maps box into PDF space. The second return value is false when
// the box is not eligible for insertion (blank text or low confidence).
func (m Mapper) MapWord(box WordBox) (MappedWord, bool) {
	text := strings.TrimSpace(box.Text)
	if text == "" || box.Confidence <= m.MinConfidence {
		return MappedWord{}, false
	}

	rect := Rect{
		X0: box.Left * m.XScale,
		Y0: box.Top * m.YScale,
		X1: (box.Left + box.Width) * m.XScale,
		Y1: (box.Top + box.Height) * m.YScale,
	}

	return MappedWord{
		Text:     text,
		Rect:     rect,
		FontSize: m.fontSize(box.Height * m.YScale),
		X:        rect.X0,
		Y:        m.PageHeight - box.Top*m.YScale,
	}, true
}

// MapWords maps every eligible box, preserving order.
func (m Mapper) MapWords(boxes []WordBox) []MappedWord {
	words := make([]MappedWord, 0, len(boxes))
	for _, b := range boxes {
		if w, ok := m.MapWord(b); ok {
			words = append(words, w)
		}
	}
	return words
}

func (m Mapper) fontSize(height float64) float64 {
	f := m.Font
	if f.SizeRatio == 0 {
		f = DefaultFont
	}
	return clamp(height*f.SizeRatio, f.MinSize, f.MaxSize)
}

// MapWord maps a single box with the default policy.
func MapWord(box WordBox, xScale, yScale, pageHeight float64) (MappedWord, bool) {
	return NewMapper(Page{Height: pageHeight}, xScale, yScale).MapWord(box)
}

// Baseline returns the bottom-left origin baseline for a mapped word,
// which sits one ascent below the top of its box.
func (w MappedWord) Baseline(ascentRatio float64) float64 {
	return w.Y - w.FontSize*ascentRatio
}
