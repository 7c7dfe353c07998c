package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout extracts text from a layout's text anchor segments.
// Segment indexes count runes of the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText []rune) string {
	if layout.GetTextAnchor() == nil {
		return ""
	}
	var b strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start := min(max(int(seg.GetStartIndex()), 0), len(fullText))
		end := min(max(int(seg.GetEndIndex()), start), len(fullText))
		b.WriteString(string(fullText[start:end]))
	}
	return b.String()
}

// span returns the first text segment of a layout, ok is false when the
// layout carries no anchor.
func span(layout *documentaipb.Document_Page_Layout) (start, end int64, ok bool) {
	segs := layout.GetTextAnchor().GetTextSegments()
	if len(segs) == 0 {
		return 0, 0, false
	}
	return segs[0].GetStartIndex(), segs[0].GetEndIndex(), true
}

// contains reports whether the text of child lies inside the text of parent.
func contains(parent, child *documentaipb.Document_Page_Layout) bool {
	ps, pe, ok := span(parent)
	if !ok {
		return false
	}
	cs, ce, ok := span(child)
	return ok && cs >= ps && ce <= pe
}
