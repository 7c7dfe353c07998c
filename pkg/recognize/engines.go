package recognize

import (
	"context"
	"fmt"
	"time"

	"github.com/gardar/searchpdf/pkg/gdocai"
)

// Config selects and configures an engine.
type Config struct {
	Engine     string        // EngineTesseract, EngineGosseract or EngineDocumentAI
	Strict     bool          // Use StrictOptions
	Timeout    time.Duration // Per page for the tesseract CLI
	TempDir    string
	DocumentAI gdocai.Config
}

// New builds the engine named by cfg.Engine.
func New(ctx context.Context, cfg Config) (Engine, error) {
	opts := Options{}
	if cfg.Strict {
		opts = StrictOptions()
	}

	switch cfg.Engine {
	case "", EngineTesseract:
		return &Tesseract{Options: opts, Timeout: cfg.Timeout, TempDir: cfg.TempDir}, nil
	case EngineGosseract:
		return newGosseract(opts)
	case EngineDocumentAI:
		if !cfg.DocumentAI.Enabled() {
			return nil, fmt.Errorf("%w: %s needs project, location and processor id", ErrEngineUnavailable, EngineDocumentAI)
		}
		return NewDocumentAI(ctx, cfg.DocumentAI)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrEngineUnavailable, cfg.Engine)
	}
}
