package pdfocr

import (
	"fmt"
	"regexp"
	"strings"
)

// pdfLiteral matches the body of a PDF literal string, escapes included.
const pdfLiteral = `\(((?:\\.|[^\\)])+)\)`

// ocgPatterns match the ways writers spell an optional content group name.
var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*` + pdfLiteral),
	regexp.MustCompile(`/Title\s*` + pdfLiteral),
	regexp.MustCompile(`/OCG\s*<<[^>]*?/Name\s*` + pdfLiteral),
	regexp.MustCompile(`<</Type/OCG/Name` + pdfLiteral),
	regexp.MustCompile(`/Name\s*` + pdfLiteral + `[\s\S]{1,50}/Type\s*/OCG`),
}

// detectPDFLayers finds layer names in the raw PDF data. Only uncompressed
// object dictionaries are visible to it, which is where fpdf and most
// writers put their OCG dictionaries.
func detectPDFLayers(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("empty PDF data")
	}

	content := string(pdfData)
	seen := make(map[string]bool)
	var layers []string
	for _, re := range ocgPatterns {
		for _, match := range re.FindAllStringSubmatch(content, -1) {
			name := unescapePDFString(match[1])
			if strings.HasPrefix(name, "\xfe\xff") {
				if decoded, err := decodeUTF16BE([]byte(name)); err == nil {
					name = decoded
				}
			}
			if !seen[name] {
				seen[name] = true
				layers = append(layers, name)
			}
		}
	}
	return layers, nil
}

// LayerCheckResult contains the results of checking for OCR layers
type LayerCheckResult struct {
	Layers       []string // All detected layers
	HasOCRLayer  bool     // True if the specified OCR layer exists
	OCRLayerName string   // Name of the detected OCR layer (if any)
	Warnings     []string // Any warnings about potential OCR layers
}

// CheckExistingOCRLayers checks for layers named like ours, either the bare
// name or the per-page "<name> (Page N)" form.
func CheckExistingOCRLayers(pdfData []byte, ocrLayerName string) (LayerCheckResult, error) {
	result := LayerCheckResult{}

	layers, err := detectPDFLayers(pdfData)
	if err != nil {
		return result, fmt.Errorf("cannot analyze layers: %w", err)
	}
	result.Layers = layers

	pageLayer := regexp.MustCompile(`^` + regexp.QuoteMeta(ocrLayerName) + `\s*\(Page\s*\d+`)
	for _, layer := range layers {
		if layer == ocrLayerName || pageLayer.MatchString(layer) {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}
		if strings.Contains(strings.ToLower(layer), "ocr") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Existing layer detected that might contain OCR: %s", layer))
		}
	}
	return result, nil
}

// OCRDetectionResult contains comprehensive OCR detection information
type OCRDetectionResult struct {
	HasOCR      bool // True if any OCR is detected by any method
	HasLayerOCR bool // True if OCR layers are detected

	LayerInfo LayerCheckResult // Details from layer detection

	Warnings []string // Warnings from any detection method
}

// DetectOCR reports whether pdfData already carries an OCR layer written
// with config.LayerName.
func DetectOCR(pdfData []byte, config OCRConfig) OCRDetectionResult {
	result := OCRDetectionResult{}

	layerResult, err := CheckExistingOCRLayers(pdfData, config.withDefaults().LayerName)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Layer detection error: %v", err))
		return result
	}
	result.LayerInfo = layerResult
	result.HasLayerOCR = layerResult.HasOCRLayer
	result.Warnings = append(result.Warnings, layerResult.Warnings...)

	// Layer detection is the only method so far.
	result.HasOCR = result.HasLayerOCR
	return result
}
