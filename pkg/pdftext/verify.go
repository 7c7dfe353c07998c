package pdftext

import (
	"log/slog"
)

// DefaultThreshold is the character count a document must exceed to be
// reported as searchable.
const DefaultThreshold = 50

// Verifier checks a finished document for selectable text.
type Verifier struct {
	Threshold int          // 0 = DefaultThreshold
	Logger    *slog.Logger // nil = slog.Default()
}

// Verify reports whether the document at path has more than Threshold
// extractable characters, and how many it has. Read failures are logged
// and reported as (false, 0).
func (v Verifier) Verify(path string) (hasText bool, chars int) {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := v.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	chars, err := CountChars(path)
	if err != nil {
		logger.Warn("text verification failed", "path", path, "error", err)
		return false, 0
	}
	return chars > threshold, chars
}

// Verify runs a default Verifier.
func Verify(path string) (bool, int) {
	return Verifier{}.Verify(path)
}
