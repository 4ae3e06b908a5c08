package preprocess

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// LinksName is the built-in name of the include expanding preprocessor.
const LinksName = "links"

const maxLinkDepth = 10

var linkPattern = regexp.MustCompile(`\\\{\{#.*\}\}|\{\{\s*#([a-zA-Z0-9_]+)\s+([^}]+)\}\}`)

// Links expands {{#include}}, {{#rustdoc_include}}, {{#playground}} and
// {{#title}} expressions in chapter content. A leading backslash escapes an
// expression.
type Links struct {
	supportsAll
}

// NewLinks returns the built-in links preprocessor.
func NewLinks() *Links { return &Links{} }

func (*Links) Name() string { return LinksName }

func (p *Links) Run(ctx context.Context, pctx *Context, b *book.Book) (*book.Book, error) {
	srcDir, err := pctx.SourceDir()
	if err != nil {
		return nil, err
	}
	b.ForEachMut(func(item *book.Item) {
		if item.Kind != book.KindChapter || item.Chapter.IsDraft() {
			return
		}
		ch := item.Chapter
		base := filepath.Join(srcDir, filepath.FromSlash(path.Dir(ch.Path)))
		title := ch.Name
		ch.Content = expand(ctx, ch.Content, base, ch.Path, 0, &title)
		if title != ch.Name && pctx.ChapterTitles != nil {
			pctx.ChapterTitles[ch.Path] = title
		}
	})
	return b, nil
}

type linkKind int

const (
	linkEscaped linkKind = iota
	linkInclude
	linkRustdocInclude
	linkPlayground
	linkTitle
)

type link struct {
	start, end int
	text       string
	kind       linkKind
	target     string
	selection  lineSelection
	attrs      []string
}

func findLinks(ctx context.Context, s string) []link {
	var out []link
	for _, m := range linkPattern.FindAllStringSubmatchIndex(s, -1) {
		l := link{start: m[0], end: m[1], text: s[m[0]:m[1]]}
		if m[2] < 0 {
			if !strings.HasPrefix(l.text, `\`) {
				continue
			}
			l.kind = linkEscaped
			out = append(out, l)
			continue
		}

		typ, rest := s[m[2]:m[3]], s[m[4]:m[5]]
		if typ == "title" {
			l.kind = linkTitle
			l.target = rest
			out = append(out, l)
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		switch typ {
		case "include", "rustdoc_include":
			l.kind = linkInclude
			if typ == "rustdoc_include" {
				l.kind = linkRustdocInclude
			}
			file, sel, _ := strings.Cut(fields[0], ":")
			l.target = file
			l.selection = parseSelection(sel)
		case "playground", "playpen":
			if typ == "playpen" {
				observability.WarnContext(ctx, "The {{#playpen}} expression has been renamed to {{#playground}}")
			}
			l.kind = linkPlayground
			l.target = fields[0]
			l.attrs = fields[1:]
		default:
			continue
		}
		out = append(out, l)
	}
	return out
}

// expand replaces every link in s. base is the directory relative links
// resolve against and source names the chapter for diagnostics.
func expand(ctx context.Context, s, base, source string, depth int, title *string) string {
	var b strings.Builder
	prev := 0
	for _, l := range findLinks(ctx, s) {
		b.WriteString(s[prev:l.start])

		content, err := l.render(base, title)
		if err != nil {
			observability.ErrorContext(ctx, "Unable to expand link",
				logfields.Path(source), logfields.Error(err))
			prev = l.start
			continue
		}

		switch {
		case l.kind == linkEscaped || l.kind == linkTitle:
			b.WriteString(content)
		case depth < maxLinkDepth:
			nestedBase := filepath.Dir(filepath.Join(base, filepath.FromSlash(l.target)))
			b.WriteString(expand(ctx, content, nestedBase, source, depth+1, title))
		default:
			observability.ErrorContext(ctx, "Include depth exceeded, check for cyclic includes",
				logfields.Path(source))
		}
		prev = l.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

func (l link) render(base string, title *string) (string, error) {
	switch l.kind {
	case linkEscaped:
		return l.text[1:], nil
	case linkTitle:
		*title = l.target
		return "", nil
	}

	target := filepath.Join(base, filepath.FromSlash(l.target))
	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("could not read file for link %s (%s): %w", l.text, target, err)
	}
	contents := string(data)

	switch l.kind {
	case linkInclude:
		return l.selection.take(contents), nil
	case linkRustdocInclude:
		return l.selection.takeRustdoc(contents), nil
	default:
		fence := "rust"
		if len(l.attrs) > 0 {
			fence = "rust," + strings.Join(l.attrs, ",")
		}
		if !strings.HasSuffix(contents, "\n") {
			contents += "\n"
		}
		return "```" + fence + "\n" + contents + "```\n", nil
	}
}
