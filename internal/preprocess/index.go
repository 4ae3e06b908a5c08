package preprocess

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// IndexName is the built-in name of the README to index preprocessor.
const IndexName = "index"

// Index renames README chapters to index.md so they become directory
// landing pages.
type Index struct {
	supportsAll
}

// NewIndex returns the built-in index preprocessor.
func NewIndex() *Index { return &Index{} }

func (*Index) Name() string { return IndexName }

func (p *Index) Run(ctx context.Context, pctx *Context, b *book.Book) (*book.Book, error) {
	srcDir, err := pctx.SourceDir()
	if err != nil {
		return nil, err
	}
	b.ForEachMut(func(item *book.Item) {
		if item.Kind != book.KindChapter || item.Chapter.IsDraft() {
			return
		}
		ch := item.Chapter
		if !isReadme(ch.Path) {
			return
		}
		indexPath := path.Join(path.Dir(ch.Path), "index.md")
		if _, err := os.Stat(filepath.Join(srcDir, filepath.FromSlash(indexPath))); err == nil {
			observability.WarnContext(ctx, "Both a README and index.md exist; the README becomes index.html and may shadow index.md",
				logfields.Path(ch.Path), logfields.Stage(IndexName))
		}
		ch.Path = indexPath
	})
	return b, nil
}

// isReadme matches a file stem of "readme" in any case.
func isReadme(p string) bool {
	base := path.Base(filepath.ToSlash(p))
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.EqualFold(stem, "readme")
}
