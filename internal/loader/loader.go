// Package loader reads a book from its source directory using the outline
// in SUMMARY.md.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/config"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// SummaryFile is the outline file name inside the source directory.
const SummaryFile = "SUMMARY.md"

var utf8BOM = []byte("\xef\xbb\xbf")

// Load parses <root>/<book.src>/SUMMARY.md, creates missing chapter files
// when build.create-missing is set, and reads every chapter.
func Load(ctx context.Context, root string, cfg *config.Config) (*book.Book, error) {
	bookCfg, err := cfg.Book()
	if err != nil {
		return nil, err
	}
	buildCfg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	srcDir := filepath.Join(root, bookCfg.Src)
	summaryPath := filepath.Join(srcDir, SummaryFile)

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		return nil, ferrors.LoadError(fmt.Sprintf("couldn't open %s in the %s directory", SummaryFile, srcDir)).
			WithContext("path", summaryPath).
			WithCause(err).
			Build()
	}
	summary, err := ParseSummary(data)
	if err != nil {
		return nil, ferrors.LoadError(fmt.Sprintf("summary parsing failed for %s", summaryPath)).
			WithContext("path", summaryPath).
			WithCause(err).
			Build()
	}

	if buildCfg.CreateMissing {
		if err := CreateMissing(ctx, srcDir, summary); err != nil {
			return nil, err
		}
	}
	return FromSummary(summary, srcDir)
}

// CreateMissing writes a stub "# <name>" file for every linked chapter
// that does not exist.
func CreateMissing(ctx context.Context, srcDir string, summary *Summary) error {
	pending := summary.Items()
	for len(pending) > 0 {
		item := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if item.Kind != book.KindChapter {
			continue
		}
		pending = append(pending, item.Link.Nested...)
		if item.Link.Location == "" {
			continue
		}

		path := chapterFile(srcDir, item.Link.Location)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return missingError(path, err)
		}
		observability.DebugContext(ctx, "Creating missing chapter file", logfields.Path(path))
		if err := os.WriteFile(path, []byte("# "+bracketEscape(item.Link.Name)+"\n"), 0o644); err != nil {
			return missingError(path, err)
		}
	}
	return nil
}

func missingError(path string, err error) error {
	return ferrors.FileSystemError(fmt.Sprintf("unable to create missing file %s", path)).
		WithCause(err).
		Build()
}

// FromSummary reads the chapters named by summary from srcDir.
func FromSummary(summary *Summary, srcDir string) (*book.Book, error) {
	b := book.New()
	for _, item := range summary.Items() {
		loaded, err := loadItem(item, srcDir, nil)
		if err != nil {
			return nil, err
		}
		b.PushItem(loaded)
	}
	return b, nil
}

func loadItem(item SummaryItem, srcDir string, parents []string) (book.Item, error) {
	switch item.Kind {
	case book.KindSeparator:
		return book.SeparatorItem(), nil
	case book.KindPartTitle:
		return book.PartTitleItem(item.PartTitle), nil
	}

	link := item.Link
	var ch *book.Chapter
	if link.Location == "" {
		ch = book.NewDraftChapter(link.Name, cloneNames(parents))
	} else {
		path := chapterFile(srcDir, link.Location)
		content, err := os.ReadFile(path)
		if err != nil {
			return book.Item{}, ferrors.LoadError(fmt.Sprintf("chapter file not found, %s", link.Location)).
				WithContext("path", path).
				WithCause(err).
				Build()
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			rel = link.Location
		}
		ch = book.NewChapter(link.Name, string(bytes.TrimPrefix(content, utf8BOM)), filepath.ToSlash(rel), cloneNames(parents))
	}
	ch.Number = link.Number

	childParents := append(cloneNames(parents), link.Name)
	for _, nested := range link.Nested {
		sub, err := loadItem(nested, srcDir, childParents)
		if err != nil {
			return book.Item{}, err
		}
		ch.SubItems = append(ch.SubItems, sub)
	}
	return book.ChapterItem(ch), nil
}

func chapterFile(srcDir, location string) string {
	if filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(srcDir, filepath.FromSlash(location))
}

func cloneNames(s []string) []string {
	return append([]string{}, s...)
}

// bracketEscape keeps a chapter name from being read back as HTML.
func bracketEscape(s string) string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(s)
}
