// Package ocrmypdf drives the ocrmypdf command line tool through an ordered
// list of option variants until one produces a searchable document.
package ocrmypdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// DefaultTimeout bounds a single variant run.
const DefaultTimeout = 300 * time.Second

// Variant is one ocrmypdf invocation. Args go between the language option
// and the input and output paths.
type Variant struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// DefaultVariants returns the standard variant order.
func DefaultVariants() []Variant {
	return []Variant{
		{Name: "Basic OCR", Args: []string{"--force-ocr"}},
		{Name: "OCR with optimization", Args: []string{"--force-ocr", "--optimize", "1", "--rotate-pages"}},
		{Name: "OCR with background removal", Args: []string{"--force-ocr", "--remove-background", "--optimize", "1"}},
	}
}

// Config configures an Orchestrator.
type Config struct {
	Binary   string        `yaml:"binary"`   // "" = "ocrmypdf"
	Language string        `yaml:"language"` // "" = "eng"
	Timeout  time.Duration `yaml:"timeout"`  // Per variant, 0 = DefaultTimeout
	WorkDir  string        `yaml:"work_dir"` // Working directory of the process
	Variants []Variant     `yaml:"variants"` // Empty = DefaultVariants()
}

// LoadVariants reads a YAML list of variants, either bare or under a
// top-level "variants" key.
func LoadVariants(path string) ([]Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variants file: %w", err)
	}

	var wrapped struct {
		Variants []Variant `yaml:"variants"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Variants) > 0 {
		return validVariants(wrapped.Variants)
	}
	var bare []Variant
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse variants file: %w", err)
	}
	return validVariants(bare)
}

func validVariants(vs []Variant) ([]Variant, error) {
	if len(vs) == 0 {
		return nil, errors.New("no variants defined")
	}
	for i, v := range vs {
		if strings.TrimSpace(v.Name) == "" {
			return nil, fmt.Errorf("variant %d has no name", i+1)
		}
	}
	return vs, nil
}

// Runner runs an external command and returns its standard error.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stderr []byte, err error)
}

// ExecRunner runs commands with os/exec. The process is killed when ctx ends.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = 5 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Orchestrator tries each variant in order and stops at the first success.
type Orchestrator struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// New returns an Orchestrator. A nil runner uses ExecRunner and a nil
// logger slog.Default().
func New(cfg Config, runner Runner, logger *slog.Logger) *Orchestrator {
	if cfg.Binary == "" {
		cfg.Binary = "ocrmypdf"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Variants) == 0 {
		cfg.Variants = DefaultVariants()
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, runner: runner, logger: logger}
}

// Variants returns the variants in the order they are tried.
func (o *Orchestrator) Variants() []Variant {
	return o.cfg.Variants
}

// Args returns the command line arguments of v.
func (o *Orchestrator) Args(v Variant, inputPath, outputPath string) []string {
	args := make([]string, 0, len(v.Args)+4)
	args = append(args, "--language", o.cfg.Language)
	args = append(args, v.Args...)
	return append(args, inputPath, outputPath)
}

// Attempt runs the variants in order. The result names the first variant
// that succeeded, or carries the last failure when all of them failed.
func (o *Orchestrator) Attempt(ctx context.Context, inputPath, outputPath string) pdfocr.StrategyResult {
	lastErr := "no variants configured"
	for i, v := range o.cfg.Variants {
		if err := ctx.Err(); err != nil {
			return pdfocr.Failed(v.Name, fmt.Sprintf("OCR cancelled: %v", err))
		}
		o.logger.Info("trying strategy", "strategy", v.Name, "attempt", i+1, "of", len(o.cfg.Variants))

		o.removePartial(outputPath)
		err := o.run(ctx, v, inputPath, outputPath)
		if err == nil {
			o.logger.Info("strategy completed", "strategy", v.Name)
			return pdfocr.Succeeded(v.Name)
		}

		o.removePartial(outputPath)
		lastErr = pdfocr.Diagnostic(err)
		o.logger.Warn("strategy failed", "strategy", v.Name, "error", lastErr)
	}
	return pdfocr.Failed("ocrmypdf", "All OCR strategies failed. Last error: "+lastErr)
}

func (o *Orchestrator) run(ctx context.Context, v Variant, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	stderr, err := o.runner.Run(ctx, o.cfg.WorkDir, o.cfg.Binary, o.Args(v, inputPath, outputPath)...)
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pdfocr.NewError(pdfocr.ErrStrategy, v.Name,
			fmt.Sprintf("%s timed out after %s", v.Name, o.cfg.Timeout), err)
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return pdfocr.NewError(pdfocr.ErrStrategy, v.Name, msg, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return pdfocr.NewError(pdfocr.ErrStrategy, v.Name, "Unknown error", err)
	}
	return pdfocr.NewError(pdfocr.ErrStrategy, v.Name, fmt.Sprintf("%s crashed: %v", v.Name, err), err)
}

func (o *Orchestrator) removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("cannot remove partial output", "path", path, "error", err)
	}
}
