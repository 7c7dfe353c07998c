package pdftext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxFormDepth bounds how deeply nested Form XObjects are followed.
const maxFormDepth = 8

// pageText returns the text shown by the page content stream and by every
// Form XObject it paints, in painting order. Pages copied into a template
// by a PDF writer keep their text inside such a form.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%v", r)
		}
	}()

	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return "", nil
	}
	var b strings.Builder
	showText(&b, contents, p.Resources(), 0)
	return b.String(), nil
}

// showText interprets strm with the given resources and appends the text
// it shows. Form XObjects painted with Do are entered with their own
// resources, or the caller's when they have none.
func showText(b *strings.Builder, strm, resources pdf.Value, depth int) {
	var enc pdf.TextEncoding
	show := func(raw string) {
		if enc == nil {
			b.WriteString(raw)
			return
		}
		b.WriteString(enc.Decode(raw))
	}

	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "BT", "T*":
			b.WriteByte('\n')
		case "Tf":
			if n != 2 {
				return
			}
			enc = nil
			if font := resources.Key("Font").Key(args[0].Name()); !font.IsNull() {
				enc = pdf.Font{V: font}.Encoder()
			}
		case "Tj", "'":
			if n == 1 {
				show(args[0].RawString())
			}
		case `"`:
			if n == 3 {
				show(args[2].RawString())
			}
		case "TJ":
			if n != 1 {
				return
			}
			for i := 0; i < args[0].Len(); i++ {
				if x := args[0].Index(i); x.Kind() == pdf.String {
					show(x.RawString())
				}
			}
		case "Do":
			if n != 1 || depth >= maxFormDepth {
				return
			}
			xobj := resources.Key("XObject").Key(args[0].Name())
			if xobj.Kind() != pdf.Stream || xobj.Key("Subtype").Name() != "Form" {
				return
			}
			res := xobj.Key("Resources")
			if res.IsNull() {
				res = resources
			}
			showText(b, xobj, res, depth+1)
		}
	})
}
