package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// MarkdownName is the built-in name of the markdown renderer.
const MarkdownName = "markdown"

// Markdown writes the preprocessed chapter sources.
type Markdown struct{}

// NewMarkdown returns the built-in markdown renderer.
func NewMarkdown() *Markdown { return &Markdown{} }

func (*Markdown) Name() string { return MarkdownName }

func (*Markdown) Render(ctx context.Context, rctx *Context) error {
	count := 0
	for ch := range rctx.Book.Chapters() {
		if ch.IsDraft() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(rctx.Destination, filepath.FromSlash(ch.Path)), []byte(ch.Content)); err != nil {
			return err
		}
		count++
	}
	observability.DebugContext(ctx, "Wrote markdown chapters",
		logfields.Count(count), logfields.Path(rctx.Destination))
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to create directory for %s", path)).
			WithCause(err).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to write %s", path)).
			WithCause(err).
			Build()
	}
	return nil
}
