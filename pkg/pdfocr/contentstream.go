package pdfocr

import (
	"bytes"
	"fmt"
	"strconv"
)

// TextBlockOptions tunes the content-stream text object built by
// BuildTextBlock.
type TextBlockOptions struct {
	FontRef     string  // Font resource name without the slash, "" keeps the current font
	AscentRatio float64 // Baseline offset below the top of each word box
	Visible     bool    // Fill the words in red (0 Tr) instead of hiding them
}

// BuildTextBlock returns a PDF text object that shows every word in
// invisible render mode (3 Tr), or filled in red when opts.Visible is set.
//
// Words are not chained with Td or T* line moves. Each one gets its own
// Tm, a text matrix scaled by its font size and placed at its baseline,
// so recognition order never has to follow reading order and the block
// works with a font selected at size 1 without a per-word Tf. TL is set
// once to one unit of that scaled space and is not relied on for
// placement. Words that cannot be encoded in the core font charset have
// unknown runes replaced by '?'.
func BuildTextBlock(words []MappedWord, opts TextBlockOptions) []byte {
	if len(words) == 0 {
		return nil
	}

	var b bytes.Buffer
	if opts.Visible {
		b.WriteString("BT\n0 Tr\n1 0 0 rg\n")
	} else {
		b.WriteString("BT\n3 Tr\n")
	}
	if opts.FontRef != "" {
		fmt.Fprintf(&b, "/%s 1 Tf\n", opts.FontRef)
	}
	// One line of leading in the per-word scaled text space.
	b.WriteString("1 TL\n")
	for _, w := range words {
		text, _ := encodeLatin1(w.Text)
		fs := num(w.FontSize)
		fmt.Fprintf(&b, "%s 0 0 %s %s %s Tm\n", fs, fs, num(w.X), num(w.Baseline(opts.AscentRatio)))
		fmt.Fprintf(&b, "(%s) Tj\n", escapePDFString(text))
	}
	b.WriteString("ET\n")
	return b.Bytes()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
