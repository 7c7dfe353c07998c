package hocr

import (
	"strings"
)

// AllLines returns every line of the page in reading order: lines inside
// areas and paragraphs first, then those directly under the page. Words
// hanging directly under an area or paragraph come back as one synthetic
// line per container.
func (p Page) AllLines() []Line {
	var lines []Line
	addParagraph := func(par Paragraph) {
		lines = append(lines, par.Lines...)
		if len(par.Words) > 0 {
			lines = append(lines, Line{BBox: par.BBox, Words: par.Words})
		}
	}
	for _, area := range p.Areas {
		for _, par := range area.Paragraphs {
			addParagraph(par)
		}
		lines = append(lines, area.Lines...)
		if len(area.Words) > 0 {
			lines = append(lines, Line{BBox: area.BBox, Words: area.Words})
		}
	}
	for _, par := range p.Paragraphs {
		addParagraph(par)
	}
	return append(lines, p.Lines...)
}

// Words returns the words of the page in reading order.
func (p Page) Words() []Word {
	var words []Word
	for _, line := range p.AllLines() {
		words = append(words, line.Words...)
	}
	return words
}

// ExtractHOCRText extracts all text from an HOCR document. Lines are
// separated by newlines and pages by a blank line.
func ExtractHOCRText(hocrDoc *HOCR) string {
	var builder strings.Builder
	for _, page := range hocrDoc.Pages {
		for _, line := range page.AllLines() {
			for i, word := range line.Words {
				if i > 0 {
					builder.WriteByte(' ')
				}
				builder.WriteString(word.Text)
			}
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}
