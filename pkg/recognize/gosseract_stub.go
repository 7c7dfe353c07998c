//go:build !gosseract

package recognize

import "fmt"

func newGosseract(Options) (Engine, error) {
	return nil, fmt.Errorf("%w: %s support not compiled in; rebuild with -tags gosseract",
		ErrEngineUnavailable, EngineGosseract)
}
