package pdfocr

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}

// encodeLatin1 converts text to ISO-8859-1 for the core PDF fonts. Runes
// outside the charset are replaced with '?' and reported through ok.
func encodeLatin1(s string) (out string, ok bool) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err == nil {
		return latin1, true
	}
	var b strings.Builder
	for _, r := range s {
		if e, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			b.WriteByte(e)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String(), false
}

// escapePDFString escapes a byte string for use inside a PDF literal string.
func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "(", "\\(")
	s = strings.ReplaceAll(s, ")", "\\)")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func unescapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\(", "(")
	s = strings.ReplaceAll(s, "\\)", ")")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}

func decodeUTF16BE(b []byte) (string, error) {
	if len(b) < 2 {
		return "", fmt.Errorf("input too short for UTF-16BE")
	}
	if b[0] != 0xFE || b[1] != 0xFF {
		return "", fmt.Errorf("no BOM detected, cannot confirm UTF-16BE")
	}
	b = b[2:]
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes), nil
}

// logPDFStructure is a debug utility that logs the head of a PDF plus the
// context around its first /OCG reference.
func logPDFStructure(logger *slog.Logger, pdfData []byte, byteCount int) {
	if byteCount > len(pdfData) {
		byteCount = len(pdfData)
	}
	args := []any{"head", string(pdfData[:byteCount])}

	if i := bytes.Index(pdfData, []byte("/OCG")); i >= 0 {
		start := max(i-20, 0)
		end := min(i+100, len(pdfData))
		args = append(args, "ocg_context", string(pdfData[start:end]))
	}
	logger.Debug("pdf structure", args...)
}
