// Package health probes the external tools the service shells out to.
package health

import (
	"context"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 10 * time.Second

// Dependency is a tool that answers a version query with exit status 0.
type Dependency struct {
	Name    string
	Command string
	Args    []string
}

// DefaultDependencies returns the tools used by OCR and rendering.
func DefaultDependencies() []Dependency {
	return []Dependency{
		{Name: "ocrmypdf", Command: "ocrmypdf", Args: []string{"--version"}},
		{Name: "tesseract", Command: "tesseract", Args: []string{"--version"}},
		{Name: "ghostscript", Command: "gs", Args: []string{"--version"}},
		{Name: "pdftoppm", Command: "pdftoppm", Args: []string{"-v"}},
	}
}

// Report is the outcome of a check.
type Report struct {
	Available map[string]bool
	Missing   []string // Sorted names of unavailable dependencies
}

// Healthy reports whether every dependency is available.
func (r Report) Healthy() bool {
	return len(r.Missing) == 0
}

// Checker runs the probes concurrently.
type Checker struct {
	Dependencies []Dependency
	Timeout      time.Duration
	Logger       *slog.Logger
}

// NewChecker returns a Checker for DefaultDependencies.
func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{Dependencies: DefaultDependencies(), Timeout: DefaultTimeout, Logger: logger}
}

func (c *Checker) Check(ctx context.Context) Report {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var mu sync.Mutex
	report := Report{Available: make(map[string]bool, len(c.Dependencies))}
	var g errgroup.Group
	for _, dep := range c.Dependencies {
		dep := dep // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			ok := probe(ctx, dep, timeout)
			mu.Lock()
			defer mu.Unlock()
			report.Available[dep.Name] = ok
			if !ok {
				report.Missing = append(report.Missing, dep.Name)
			}
			return nil
		})
	}
	g.Wait()
	sort.Strings(report.Missing)

	for _, dep := range c.Dependencies {
		if report.Available[dep.Name] {
			c.Logger.Debug("dependency available", "dependency", dep.Name)
		}
	}
	return report
}

func probe(ctx context.Context, dep Dependency, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return exec.CommandContext(ctx, dep.Command, dep.Args...).Run() == nil
}
