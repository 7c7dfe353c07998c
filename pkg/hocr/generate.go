package hocr

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"strings"
	"text/template"
)

//go:embed templates/hocr.tmpl
var templateFS embed.FS

var hocrTemplate = template.Must(template.New("hocr.tmpl").Funcs(template.FuncMap{
	"trim": strings.TrimSpace,
	"bbox": formatBBox,
	"conf": func(c float64) int { return int(math.Round(c)) },
}).ParseFS(templateFS, "templates/hocr.tmpl"))

func formatBBox(b BoundingBox) string {
	return fmt.Sprintf("bbox %d %d %d %d",
		int(math.Round(b.X1)), int(math.Round(b.Y1)), int(math.Round(b.X2)), int(math.Round(b.Y2)))
}

// GenerateHOCRDocument creates an hOCR HTML document from the HOCR struct
// using the embedded template. Pages are written flattened to
// page > line > word, which ParseHOCR reads back unchanged.
func GenerateHOCRDocument(doc *HOCR) (string, error) {
	var buf bytes.Buffer
	if err := hocrTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("error rendering hOCR template: %w", err)
	}
	return buf.String(), nil
}
