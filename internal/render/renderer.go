// Package render defines the renderer stage: the built-in html and
// markdown renderers and renderers backed by an external command.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/config"
)

// ErrSkipped is returned by a renderer that chose not to run, such as an
// optional external renderer whose command is missing.
var ErrSkipped = errors.New("renderer skipped")

// Renderer turns the final book into output under a destination directory.
type Renderer interface {
	Name() string
	Render(ctx context.Context, rctx *Context) error
}

// Context is what a renderer receives. It is also the JSON document sent
// to an external renderer on stdin.
type Context struct {
	Version     string         `json:"version"`
	Root        string         `json:"root"`
	Book        *book.Book     `json:"book"`
	Config      *config.Config `json:"config"`
	Destination string         `json:"destination"`

	// ChapterTitles holds {{#title}} overrides keyed by chapter path.
	ChapterTitles map[string]string `json:"-"`
}

// NewContext returns a render context.
func NewContext(root string, cfg *config.Config, b *book.Book, destination, version string) *Context {
	return &Context{
		Version:       version,
		Root:          root,
		Book:          b,
		Config:        cfg,
		Destination:   destination,
		ChapterTitles: map[string]string{},
	}
}

// ContextFromJSON decodes the document an external renderer receives on
// stdin.
func ContextFromJSON(r io.Reader) (*Context, error) {
	rctx := &Context{}
	if err := json.NewDecoder(r).Decode(rctx); err != nil {
		return nil, fmt.Errorf("decode render context: %w", err)
	}
	if rctx.Book == nil {
		rctx.Book = book.New()
	}
	if rctx.Config == nil {
		rctx.Config = config.Default()
	}
	return rctx, nil
}

func (c *Context) config() *config.Config {
	if c.Config == nil {
		return config.Default()
	}
	return c.Config
}

// SourceDir is the absolute chapter source directory.
func (c *Context) SourceDir() (string, error) {
	bookCfg, err := c.config().Book()
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Root, bookCfg.Src), nil
}

// ChapterTitle returns the title override for ch, or its name.
func (c *Context) ChapterTitle(ch *book.Chapter) string {
	if t, ok := c.ChapterTitles[ch.Path]; ok && t != "" {
		return t
	}
	return ch.Name
}
