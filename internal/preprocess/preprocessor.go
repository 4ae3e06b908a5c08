// Package preprocess defines the preprocessor stage and its built-in and
// external implementations.
package preprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/config"
)

// Preprocessor transforms a book before it reaches a renderer.
type Preprocessor interface {
	Name() string
	// Run returns the transformed book. It may return b itself.
	Run(ctx context.Context, pctx *Context, b *book.Book) (*book.Book, error)
	// Supports reports whether the preprocessor should run for renderer.
	Supports(ctx context.Context, renderer string) (bool, error)
}

// Context is what a preprocessor learns about the build.
type Context struct {
	Root          string         `json:"root"`
	Config        *config.Config `json:"config"`
	Renderer      string         `json:"renderer"`
	MdbookVersion string         `json:"mdbook_version"`

	// ChapterTitles maps chapter paths to title overrides collected while
	// preprocessing. It stays in process and is handed to the renderer.
	ChapterTitles map[string]string `json:"-"`
}

// NewContext returns a context for one renderer.
func NewContext(root string, cfg *config.Config, renderer, version string) *Context {
	return &Context{
		Root:          root,
		Config:        cfg,
		Renderer:      renderer,
		MdbookVersion: version,
		ChapterTitles: map[string]string{},
	}
}

// SourceDir is the absolute chapter source directory.
func (c *Context) SourceDir() (string, error) {
	cfg := c.Config
	if cfg == nil {
		cfg = config.Default()
	}
	bookCfg, err := cfg.Book()
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Root, bookCfg.Src), nil
}

// ParseInput decodes the [context, book] pair an external preprocessor
// receives on stdin.
func ParseInput(r io.Reader) (*Context, *book.Book, error) {
	var pair []json.RawMessage
	if err := json.NewDecoder(r).Decode(&pair); err != nil {
		return nil, nil, fmt.Errorf("decode preprocessor input: %w", err)
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("decode preprocessor input: expected [context, book], got %d elements", len(pair))
	}

	pctx := &Context{}
	if err := json.Unmarshal(pair[0], pctx); err != nil {
		return nil, nil, fmt.Errorf("decode preprocessor context: %w", err)
	}
	b := &book.Book{}
	if err := json.Unmarshal(pair[1], b); err != nil {
		return nil, nil, fmt.Errorf("decode book: %w", err)
	}
	return pctx, b, nil
}

// supportsAll is embedded by preprocessors that apply to every renderer.
type supportsAll struct{}

func (supportsAll) Supports(context.Context, string) (bool, error) { return true, nil }
