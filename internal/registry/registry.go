// Package registry maps stage descriptors to runnable preprocessors and
// renderers.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rust-lang/mdBook-sub001/internal/extproc"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/preprocess"
	"github.com/rust-lang/mdBook-sub001/internal/render"
	"github.com/rust-lang/mdBook-sub001/internal/stage"
)

// ErrDuplicate is returned when a built-in name is registered twice.
var ErrDuplicate = errors.New("stage already registered")

// PreprocessorFactory creates a fresh built-in preprocessor.
type PreprocessorFactory func() preprocess.Preprocessor

// RendererFactory creates a fresh built-in renderer.
type RendererFactory func() render.Renderer

// Registry holds the built-in stages. A descriptor naming a built-in with
// no configured command gets the built-in; every other descriptor gets an
// external command stage.
type Registry struct {
	mu            sync.RWMutex
	preprocessors map[string]PreprocessorFactory
	renderers     map[string]RendererFactory
	bridge        *extproc.Bridge
}

// New returns a registry with the index and links preprocessors and the
// html and markdown renderers. External stages spawn through bridge.
func New(bridge *extproc.Bridge) *Registry {
	r := NewEmpty(bridge)
	_ = r.RegisterPreprocessor(preprocess.IndexName, func() preprocess.Preprocessor { return preprocess.NewIndex() })
	_ = r.RegisterPreprocessor(preprocess.LinksName, func() preprocess.Preprocessor { return preprocess.NewLinks() })
	_ = r.RegisterRenderer(render.HTMLName, func() render.Renderer { return render.NewHTML() })
	_ = r.RegisterRenderer(render.MarkdownName, func() render.Renderer { return render.NewMarkdown() })
	return r
}

// NewEmpty returns a registry without built-ins.
func NewEmpty(bridge *extproc.Bridge) *Registry {
	if bridge == nil {
		bridge = extproc.New()
	}
	return &Registry{
		preprocessors: make(map[string]PreprocessorFactory),
		renderers:     make(map[string]RendererFactory),
		bridge:        bridge,
	}
}

// Bridge returns the bridge external stages spawn through.
func (r *Registry) Bridge() *extproc.Bridge { return r.bridge }

// RegisterPreprocessor adds a built-in preprocessor.
func (r *Registry) RegisterPreprocessor(name string, f PreprocessorFactory) error {
	if f == nil {
		return fmt.Errorf("cannot register nil preprocessor factory %q", name)
	}
	return register(&r.mu, r.preprocessors, name, f)
}

// RegisterRenderer adds a built-in renderer.
func (r *Registry) RegisterRenderer(name string, f RendererFactory) error {
	if f == nil {
		return fmt.Errorf("cannot register nil renderer factory %q", name)
	}
	return register(&r.mu, r.renderers, name, f)
}

func register[F any](mu *sync.RWMutex, m map[string]F, name string, f F) error {
	name = stage.CanonicalName(name)
	if name == "" {
		return errors.New("cannot register a stage without a name")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := m[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	m[name] = f
	return nil
}

// IsBuiltin reports whether name is a registered built-in of kind.
func (r *Registry) IsBuiltin(kind stage.Kind, name string) bool {
	name = stage.CanonicalName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if kind == stage.KindRenderer {
		_, ok := r.renderers[name]
		return ok
	}
	_, ok := r.preprocessors[name]
	return ok
}

// Builtins returns the sorted built-in names of kind.
func (r *Registry) Builtins(kind stage.Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	if kind == stage.KindRenderer {
		for name := range r.renderers {
			names = append(names, name)
		}
	} else {
		for name := range r.preprocessors {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Preprocessor builds the stage for d. Relative commands resolve
// against root.
func (r *Registry) Preprocessor(d stage.Descriptor, root string) (preprocess.Preprocessor, error) {
	if d.Kind != stage.KindPreprocessor {
		return nil, kindError(d, stage.KindPreprocessor)
	}
	if !d.CommandSet {
		r.mu.RLock()
		f, ok := r.preprocessors[d.Name]
		r.mu.RUnlock()
		if ok {
			return f(), nil
		}
	}
	return preprocess.NewCmd(d.Name, d.EffectiveCommand(), root, d.Optional, r.bridge), nil
}

// Renderer builds the stage for d.
func (r *Registry) Renderer(d stage.Descriptor, root string) (render.Renderer, error) {
	if d.Kind != stage.KindRenderer {
		return nil, kindError(d, stage.KindRenderer)
	}
	if !d.CommandSet {
		r.mu.RLock()
		f, ok := r.renderers[d.Name]
		r.mu.RUnlock()
		if ok {
			return f(), nil
		}
	}
	return render.NewCmd(d.Name, d.EffectiveCommand(), root, d.Optional, r.bridge), nil
}

func kindError(d stage.Descriptor, want stage.Kind) error {
	return ferrors.InternalError(fmt.Sprintf("stage %q is a %s, not a %s", d.Name, d.Kind, want)).Build()
}
