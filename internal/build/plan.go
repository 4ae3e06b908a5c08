package build

import (
	"path/filepath"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	"github.com/rust-lang/mdBook-sub001/internal/stage"
)

// Plan is the resolved stage layout of a build.
type Plan struct {
	// Preprocessors in execution order.
	Preprocessors []stage.Descriptor
	// Renderers in name order.
	Renderers []stage.Descriptor
}

// NewPlan normalizes the stage tables of cfg and resolves the
// preprocessor order. No stage runs.
func NewPlan(cfg *config.Config) (*Plan, error) {
	pre, err := stage.Preprocessors(cfg)
	if err != nil {
		return nil, err
	}
	ordered, err := stage.Resolve(pre)
	if err != nil {
		return nil, err
	}
	renderers, err := stage.Renderers(cfg)
	if err != nil {
		return nil, err
	}
	return &Plan{Preprocessors: ordered, Renderers: renderers.Sorted()}, nil
}

// BaseDir returns the output base directory: override when set, else
// build.build-dir. Relative paths resolve against root.
func BaseDir(root string, cfg *config.Config, override string) (string, error) {
	dir := override
	if dir == "" {
		buildCfg, err := cfg.Build()
		if err != nil {
			return "", err
		}
		dir = buildCfg.BuildDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	return filepath.Join(root, dir), nil
}

// Destination is where renderer writes: the base directory itself when it
// is the only renderer, else a subdirectory named after it.
func Destination(base, renderer string, renderers int) string {
	if renderers == 1 {
		return base
	}
	return filepath.Join(base, renderer)
}
