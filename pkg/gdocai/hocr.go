package gdocai

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/searchpdf/pkg/hocr"
)

// CreateHOCRStruct converts a Document AI response to an HOCR document
func CreateHOCRStruct(doc *documentaipb.Document) *hocr.HOCR {
	fullText := []rune(doc.GetText())

	result := &hocr.HOCR{
		Title:    "Document OCR",
		Language: documentLanguage(doc),
		Metadata: map[string]string{
			"ocr-system":          "Document AI OCR",
			"ocr-number-of-pages": strconv.Itoa(len(doc.GetPages())),
			"ocr-capabilities":    "ocrp_lang ocr_page ocr_par ocr_line ocrx_word",
		},
	}
	if result.Language == "" {
		result.Language = "unknown"
	} else {
		result.Metadata["ocr-langs"] = result.Language
	}

	for i, page := range doc.GetPages() {
		n := int(page.GetPageNumber())
		if n == 0 {
			n = i + 1
		}
		result.Pages = append(result.Pages, CreateHOCRPage(page, fullText, n))
	}
	return result
}

// CreateHOCRPage converts a single Document AI page. Lines are grouped
// under the paragraph whose text contains them; lines outside every
// paragraph hang directly under the page.
func CreateHOCRPage(page *documentaipb.Document_Page, fullText []rune, pageNumber int) hocr.Page {
	dim := page.GetDimension()
	ocrPage := hocr.Page{
		ID:         fmt.Sprintf("page_%d", pageNumber),
		PageNumber: pageNumber,
		BBox:       hocr.NewBoundingBox(0, 0, float64(dim.GetWidth()), float64(dim.GetHeight())),
		Metadata:   map[string]string{},
	}
	if langs := page.GetDetectedLanguages(); len(langs) > 0 {
		ocrPage.Lang = langs[0].GetLanguageCode()
	}

	assigned := make([]bool, len(page.GetLines()))
	for pidx, para := range page.GetParagraphs() {
		ocrPar := hocr.Paragraph{
			ID:       fmt.Sprintf("par_%d_%d", pageNumber, pidx),
			BBox:     bbox(para.GetLayout(), dim),
			Metadata: map[string]string{},
		}
		for lidx, line := range page.GetLines() {
			if assigned[lidx] || !contains(para.GetLayout(), line.GetLayout()) {
				continue
			}
			assigned[lidx] = true
			ocrPar.Lines = append(ocrPar.Lines, convertLine(line, page, fullText, pageNumber, lidx))
		}
		ocrPage.Paragraphs = append(ocrPage.Paragraphs, ocrPar)
	}

	for lidx, line := range page.GetLines() {
		if !assigned[lidx] {
			ocrPage.Lines = append(ocrPage.Lines, convertLine(line, page, fullText, pageNumber, lidx))
		}
	}
	return ocrPage
}

// convertLine builds an hOCR line from the tokens whose text falls inside it.
func convertLine(line *documentaipb.Document_Page_Line, page *documentaipb.Document_Page,
	fullText []rune, pageNum, lineIdx int) hocr.Line {

	dim := page.GetDimension()
	ocrLine := hocr.Line{
		ID:       fmt.Sprintf("line_%d_%d", pageNum, lineIdx),
		BBox:     bbox(line.GetLayout(), dim),
		Metadata: map[string]string{},
	}
	if langs := line.GetDetectedLanguages(); len(langs) > 0 {
		ocrLine.Lang = langs[0].GetLanguageCode()
	}

	for tidx, token := range page.GetTokens() {
		if !contains(line.GetLayout(), token.GetLayout()) {
			continue
		}
		text := strings.TrimSpace(textFromLayout(token.GetLayout(), fullText))
		text = strings.ReplaceAll(text, "\r", "")
		text = strings.ReplaceAll(text, "\n", " ")
		if text == "" {
			continue
		}

		word := hocr.Word{
			ID:         fmt.Sprintf("word_%d_%d_%d", pageNum, lineIdx, tidx),
			Text:       text,
			BBox:       bbox(token.GetLayout(), dim),
			Confidence: -1,
			Metadata:   map[string]string{},
		}
		if token.GetLayout() != nil {
			word.Confidence = float64(token.GetLayout().GetConfidence()) * 100
		}
		if langs := token.GetDetectedLanguages(); len(langs) > 0 {
			word.Lang = langs[0].GetLanguageCode()
		}
		ocrLine.Words = append(ocrLine.Words, word)
	}
	return ocrLine
}

// bbox scales a layout's normalized polygon to the page's pixel
// dimensions, taking the extremes of all vertices.
func bbox(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) hocr.BoundingBox {
	vs := layout.GetBoundingPoly().GetNormalizedVertices()
	if len(vs) == 0 || dim == nil {
		return hocr.BoundingBox{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vs {
		x := float64(v.GetX()) * float64(dim.GetWidth())
		y := float64(v.GetY()) * float64(dim.GetHeight())
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return hocr.NewBoundingBox(math.Round(minX), math.Round(minY), math.Round(maxX), math.Round(maxY))
}

// documentLanguage returns the most frequent language over pages and tokens.
func documentLanguage(doc *documentaipb.Document) string {
	count := make(map[string]int)
	for _, page := range doc.GetPages() {
		for _, lang := range page.GetDetectedLanguages() {
			count[lang.GetLanguageCode()]++
		}
		for _, token := range page.GetTokens() {
			for _, lang := range token.GetDetectedLanguages() {
				count[lang.GetLanguageCode()]++
			}
		}
	}

	langs := make([]string, 0, len(count))
	for lang := range count {
		if lang != "" {
			langs = append(langs, lang)
		}
	}
	// Ties go to the alphabetically first code so the result is stable.
	sort.Slice(langs, func(i, j int) bool {
		if count[langs[i]] != count[langs[j]] {
			return count[langs[i]] > count[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}
