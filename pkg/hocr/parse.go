package hocr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// elementKind is the hOCR level of an HTML element.
type elementKind int

const (
	kindNone elementKind = iota
	kindPage
	kindArea
	kindParagraph
	kindLine
	kindWord
)

// Tesseract tags headers, captions and floating text as line variants.
var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

func kindOf(n *html.Node) elementKind {
	if n.Type != html.ElementNode {
		return kindNone
	}
	for _, class := range strings.Fields(getAttrVal(n, "class")) {
		switch class {
		case "ocr_page":
			return kindPage
		case "ocr_carea":
			return kindArea
		case "ocr_par":
			return kindParagraph
		case "ocrx_word":
			return kindWord
		}
		for _, lc := range lineClasses {
			if class == lc {
				return kindLine
			}
		}
	}
	return kindNone
}

// ParseHOCR converts raw hOCR data into a structured HOCR object. The
// character encoding is taken from a BOM or meta charset, falling back to
// UTF-8 detection.
func ParseHOCR(data []byte) (HOCR, error) {
	result := HOCR{Metadata: make(map[string]string)}

	enc, _, _ := charset.DetermineEncoding(data, "text/html")
	doc, err := html.Parse(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return result, fmt.Errorf("failed to parse hOCR html: %w", err)
	}

	extractDocumentMeta(&result, doc)

	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if kindOf(n) == kindPage {
			result.Pages = append(result.Pages, processPage(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(doc)

	if len(result.Pages) == 0 {
		return result, fmt.Errorf("no ocr_page elements found in HOCR data")
	}
	return result, nil
}

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// ParseBoundingBoxFromTitle extracts a bounding box from a title string
// Returns nil if the title has no complete bbox property
func ParseBoundingBoxFromTitle(title string) *BoundingBox {
	return bboxFromProps(ParseTitle(title))
}

func bboxFromProps(props map[string][]string) *BoundingBox {
	v, ok := props["bbox"]
	if !ok || len(v) < 4 {
		return nil
	}
	var c [4]float64
	for i := range c {
		f, err := strconv.ParseFloat(v[i], 64)
		if err != nil {
			return nil
		}
		c[i] = f
	}
	b := NewBoundingBox(c[0], c[1], c[2], c[3])
	return &b
}

// attributes holds what every hOCR element carries.
type attributes struct {
	id    string
	lang  string
	title string
	props map[string][]string
	bbox  BoundingBox
}

func readAttributes(n *html.Node) attributes {
	a := attributes{
		id:    getAttrVal(n, "id"),
		lang:  getAttrVal(n, "lang"),
		title: getAttrVal(n, "title"),
	}
	a.props = ParseTitle(a.title)
	if b := bboxFromProps(a.props); b != nil {
		a.bbox = *b
	}
	return a
}

// metadata returns the title properties not in skip, joined by spaces.
func (a attributes) metadata(skip ...string) map[string]string {
	m := make(map[string]string)
outer:
	for k, v := range a.props {
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		m[k] = strings.Join(v, " ")
	}
	return m
}

// children returns the nearest hOCR elements below n in document order,
// without descending into them.
func children(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if kindOf(c) != kindNone {
				out = append(out, c)
				continue
			}
			walk(c.FirstChild)
		}
	}
	walk(n.FirstChild)
	return out
}

// extractDocumentMeta extracts document-level metadata from the html tag
// and the head section
func extractDocumentMeta(result *HOCR, doc *html.Node) {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "html" {
			if lang := getAttrVal(c, "lang"); lang != "" {
				result.Language = lang
			} else if lang := getAttrVal(c, "xml:lang"); lang != "" {
				result.Language = lang
			}
		}
	}

	head := findElement(doc, "head")
	if head == nil {
		return
	}
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			result.Title = extractTextContent(c)
		case "meta":
			name, content := getAttrVal(c, "name"), getAttrVal(c, "content")
			if name == "" || content == "" {
				continue
			}
			switch name {
			case "ocr-system", "ocr-capabilities", "ocr-number-of-pages", "ocr-langs":
				result.Metadata[name] = content
			case "description":
				result.Description = content
			case "dc.language":
				result.Language = content
			}
		}
	}
}

func processPage(n *html.Node) Page {
	a := readAttributes(n)
	page := Page{
		ID:       a.id,
		Title:    a.title,
		Lang:     a.lang,
		BBox:     a.bbox,
		Metadata: a.metadata("bbox", "image", "ppageno"),
	}
	if v := a.props["image"]; len(v) > 0 {
		page.ImageName = strings.Trim(strings.Join(v, " "), `"`)
	}
	if v := a.props["ppageno"]; len(v) > 0 {
		page.PageNumber, _ = strconv.Atoi(v[0])
	}

	for _, c := range children(n) {
		switch kindOf(c) {
		case kindArea:
			page.Areas = append(page.Areas, processArea(c))
		case kindParagraph:
			page.Paragraphs = append(page.Paragraphs, processParagraph(c))
		case kindLine:
			page.Lines = append(page.Lines, processLine(c))
		case kindWord:
			// A stray word becomes a line of its own.
			page.Lines = append(page.Lines, Line{Words: []Word{processWord(c)}, Metadata: map[string]string{}})
		}
	}
	return page
}

func processArea(n *html.Node) Area {
	a := readAttributes(n)
	area := Area{ID: a.id, Lang: a.lang, BBox: a.bbox, Metadata: a.metadata("bbox")}

	for _, c := range children(n) {
		switch kindOf(c) {
		case kindParagraph:
			area.Paragraphs = append(area.Paragraphs, processParagraph(c))
		case kindLine:
			area.Lines = append(area.Lines, processLine(c))
		case kindWord:
			area.Words = append(area.Words, processWord(c))
		}
	}
	return area
}

func processParagraph(n *html.Node) Paragraph {
	a := readAttributes(n)
	paragraph := Paragraph{ID: a.id, Lang: a.lang, BBox: a.bbox, Metadata: a.metadata("bbox")}

	for _, c := range children(n) {
		switch kindOf(c) {
		case kindLine:
			paragraph.Lines = append(paragraph.Lines, processLine(c))
		case kindWord:
			paragraph.Words = append(paragraph.Words, processWord(c))
		}
	}
	return paragraph
}

func processLine(n *html.Node) Line {
	a := readAttributes(n)
	line := Line{
		ID:       a.id,
		Lang:     a.lang,
		BBox:     a.bbox,
		Baseline: strings.Join(a.props["baseline"], " "),
		Metadata: a.metadata("bbox", "baseline"),
	}

	for _, c := range children(n) {
		if kindOf(c) == kindWord {
			line.Words = append(line.Words, processWord(c))
		}
	}
	return line
}

// processWord reads a word element. Confidence is -1 when the element
// carries no x_wconf property.
func processWord(n *html.Node) Word {
	a := readAttributes(n)
	word := Word{
		ID:         a.id,
		Lang:       a.lang,
		BBox:       a.bbox,
		Confidence: -1,
		Text:       extractTextContent(n),
		Metadata:   a.metadata("bbox", "x_wconf", "lang"),
	}
	if v := a.props["x_wconf"]; len(v) > 0 {
		if conf, err := strconv.ParseFloat(v[0], 64); err == nil {
			word.Confidence = conf
		}
	}
	if v := a.props["lang"]; len(v) > 0 {
		word.Lang = v[0]
	}
	return word
}

// extractTextContent gets all text from a node and its children
func extractTextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Get the value of a specific attribute from a node
func getAttrVal(n *html.Node, attrName string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}
