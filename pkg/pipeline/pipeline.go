// Package pipeline turns one uploaded PDF into a searchable one: it
// validates the input, runs the OCR stages in order until one succeeds,
// checks the output exists and verifies it has selectable text.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// MaxUploadBytes is the default input size limit.
const MaxUploadBytes = 20 << 20

// Magic is the required start of every input document.
const Magic = "%PDF-"

// Strategy produces outputPath from inputPath.
type Strategy interface {
	Attempt(ctx context.Context, inputPath, outputPath string) pdfocr.StrategyResult
}

// Verifier counts selectable characters in a finished document.
type Verifier interface {
	Verify(path string) (hasText bool, chars int)
}

// Stage is a named Strategy. The name is reported as the processing method.
type Stage struct {
	Name     string
	Strategy Strategy
}

// Result is what a caller learns about a processed document.
type Result struct {
	Success           bool
	Stage             string // Stage that produced the output
	Method            string // Variant or technique inside the stage
	Diagnostic        string // Success message or the last failure
	OutputPath        string
	HasSelectableText bool
	CharacterCount    int
}

// Processor runs the stages.
type Processor struct {
	Stages   []Stage
	Verifier Verifier
	MaxBytes int64 // 0 = MaxUploadBytes
	// OwnsInput makes the processor delete the input when it is done,
	// on success and on every failure.
	OwnsInput bool
	Logger    *slog.Logger
}

// ValidateUpload checks an upload before it is stored.
func ValidateUpload(filename string, head []byte, size, maxBytes int64) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return pdfocr.NewError(pdfocr.ErrInputValidation, "validate", "Only PDF files are allowed", nil)
	}
	return validateContent(head, size, maxBytes)
}

func validateContent(head []byte, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	if size > maxBytes {
		return pdfocr.NewError(pdfocr.ErrInputValidation, "validate",
			fmt.Sprintf("File size must be less than %dMB", maxBytes>>20), nil)
	}
	if !bytes.HasPrefix(head, []byte(Magic)) {
		return pdfocr.NewError(pdfocr.ErrInputValidation, "validate", "File content is not a PDF", nil)
	}
	return nil
}

// Process converts inputPath into outputPath. A failed run returns the
// Result with the diagnostic and an error of kind ErrInputValidation,
// ErrPipelineExhausted or ErrPersistence.
func (p *Processor) Process(ctx context.Context, inputPath, outputPath string) (Result, error) {
	logger := p.logger()
	defer p.removeInput(inputPath)

	if err := p.preflight(inputPath); err != nil {
		return Result{Diagnostic: pdfocr.Diagnostic(err)}, err
	}

	var (
		stage  Stage
		result pdfocr.StrategyResult
	)
	for _, s := range p.Stages {
		if err := ctx.Err(); err != nil {
			result = pdfocr.Failed(s.Name, fmt.Sprintf("processing cancelled: %v", err))
			break
		}
		stage, result = s, s.Strategy.Attempt(ctx, inputPath, outputPath)
		if result.Success {
			break
		}
		logger.Warn("stage failed", "stage", s.Name, "error", result.Message)
	}

	if !result.Success {
		p.removeOutput(outputPath)
		msg := result.Message
		if msg == "" {
			msg = "no OCR stage configured"
		}
		return Result{Diagnostic: msg}, pdfocr.NewError(pdfocr.ErrPipelineExhausted, "process",
			"All OCR methods failed: "+msg, nil)
	}

	if info, err := os.Stat(outputPath); err != nil || !info.Mode().IsRegular() {
		p.removeOutput(outputPath)
		msg := "Processing completed but output file not found"
		return Result{Diagnostic: msg}, pdfocr.NewError(pdfocr.ErrPersistence, "process", msg, err)
	}

	res := Result{
		Success:    true,
		Stage:      stage.Name,
		Method:     result.Method,
		Diagnostic: result.Message,
		OutputPath: outputPath,
	}
	if p.Verifier != nil {
		res.HasSelectableText, res.CharacterCount = p.Verifier.Verify(outputPath)
	}
	logger.Info("document processed",
		"stage", res.Stage,
		"strategy", res.Method,
		"has_selectable_text", res.HasSelectableText,
		"character_count", res.CharacterCount)
	return res, nil
}

// preflight re-checks size and magic of the stored input.
func (p *Processor) preflight(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pdfocr.NewError(pdfocr.ErrInputValidation, "preflight", "input document not found", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return pdfocr.NewError(pdfocr.ErrInputValidation, "preflight", "cannot stat input document", err)
	}
	head := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, head); err != nil {
		head = nil
	}
	return validateContent(head, info.Size(), p.MaxBytes)
}

func (p *Processor) removeInput(path string) {
	if !p.OwnsInput {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.logger().Warn("cannot remove input", "path", path, "error", err)
	}
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Processor) removeOutput(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.logger().Warn("cannot remove output", "path", path, "error", err)
	}
}
