package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// HTMLName is the built-in name of the html renderer.
const HTMLName = "html"

// HTML renders every chapter to a standalone page with a sidebar table of
// contents. The first chapter is also written as index.html. Files in the
// source directory that are not Markdown are copied alongside.
type HTML struct{}

// NewHTML returns the built-in html renderer.
func NewHTML() *HTML { return &HTML{} }

func (*HTML) Name() string { return HTMLName }

type tocEntry struct {
	Name      string
	Number    string
	Href      string
	Depth     int
	Separator bool
	Part      bool
}

type page struct {
	Language    string
	Title       string
	Description string
	PathToRoot  string
	Current     string
	TOC         []tocEntry
	Content     template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
</head>
<body>
<nav class="sidebar">
<ol class="chapter">
{{- range .TOC}}
{{- if .Separator}}
<li class="spacer"></li>
{{- else if .Part}}
<li class="part-title">{{.Name}}</li>
{{- else if .Href}}
<li class="chapter-item" data-depth="{{.Depth}}"><a href="{{$.PathToRoot}}{{.Href}}"{{if eq .Href $.Current}} class="active"{{end}}>{{if .Number}}<strong>{{.Number}}</strong> {{end}}{{.Name}}</a></li>
{{- else}}
<li class="chapter-item draft" data-depth="{{.Depth}}">{{if .Number}}<strong>{{.Number}}</strong> {{end}}{{.Name}}</li>
{{- end}}
{{- end}}
</ol>
</nav>
<main>
{{.Content}}
</main>
</body>
</html>
`))

func (r *HTML) Render(ctx context.Context, rctx *Context) error {
	cfg := rctx.config()
	bookCfg, err := cfg.Book()
	if err != nil {
		return err
	}
	smart, _, err := cfg.Tree().Bool("output.html.smart-punctuation")
	if err != nil {
		return ferrors.ConfigError("invalid [output.html] table").WithCause(err).Build()
	}

	md := newMarkdown(smart)
	toc := tableOfContents(rctx, rctx.Book.Sections, 0, nil)

	var index *page
	wroteIndex := false
	count := 0
	for ch := range rctx.Book.Chapters() {
		if ch.IsDraft() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var body bytes.Buffer
		if err := md.Convert([]byte(ch.Content), &body); err != nil {
			return ferrors.BuildError(fmt.Sprintf("unable to render chapter %q", ch.Name)).
				WithContext("path", ch.Path).
				WithCause(err).
				Build()
		}

		out := htmlPath(ch.Path)
		p := page{
			Language:    bookCfg.Language,
			Title:       pageTitle(rctx.ChapterTitle(ch), bookCfg.Title),
			Description: bookCfg.Description,
			PathToRoot:  pathToRoot(out),
			Current:     out,
			TOC:         toc,
			Content:     template.HTML(body.String()), //nolint:gosec // chapter HTML is author content
		}
		if err := writePage(filepath.Join(rctx.Destination, filepath.FromSlash(out)), p); err != nil {
			return err
		}
		wroteIndex = wroteIndex || out == "index.html"
		if index == nil {
			index = &p
		}
		count++
	}

	if index != nil && !wroteIndex {
		index.PathToRoot = ""
		if err := writePage(filepath.Join(rctx.Destination, "index.html"), *index); err != nil {
			return err
		}
	}
	if err := copyStatic(ctx, rctx); err != nil {
		return err
	}
	observability.DebugContext(ctx, "Rendered html chapters",
		logfields.Count(count), logfields.Path(rctx.Destination))
	return nil
}

func newMarkdown(smart bool) goldmark.Markdown {
	exts := []goldmark.Extender{extension.GFM, extension.Footnote}
	if smart {
		exts = append(exts, extension.Typographer)
	}
	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(linkRewriter{}, 100)),
		),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
}

// linkRewriter points relative links to .md files at the rendered page.
type linkRewriter struct{}

func (linkRewriter) Transform(doc *gmast.Document, _ text.Reader, _ parser.Context) {
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if link, ok := n.(*gmast.Link); ok && entering {
			link.Destination = []byte(rewriteLink(string(link.Destination)))
		}
		return gmast.WalkContinue, nil
	})
}

func rewriteLink(dest string) string {
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "mailto:") {
		return dest
	}
	target, frag, hasFrag := strings.Cut(dest, "#")
	if !strings.HasSuffix(target, ".md") {
		return dest
	}
	target = strings.TrimSuffix(target, ".md") + ".html"
	if hasFrag {
		return target + "#" + frag
	}
	return target
}

func tableOfContents(rctx *Context, items []book.Item, depth int, out []tocEntry) []tocEntry {
	for _, item := range items {
		switch item.Kind {
		case book.KindSeparator:
			out = append(out, tocEntry{Separator: true, Depth: depth})
		case book.KindPartTitle:
			out = append(out, tocEntry{Part: true, Name: item.PartTitle, Depth: depth})
		case book.KindChapter:
			ch := item.Chapter
			e := tocEntry{Name: rctx.ChapterTitle(ch), Depth: depth}
			if len(ch.Number) > 0 {
				e.Number = ch.Number.String()
			}
			if !ch.IsDraft() {
				e.Href = htmlPath(ch.Path)
			}
			out = append(out, e)
			out = tableOfContents(rctx, ch.SubItems, depth+1, out)
		}
	}
	return out
}

// htmlPath maps a chapter source path to its page path.
func htmlPath(p string) string {
	p = filepath.ToSlash(p)
	return strings.TrimSuffix(p, path.Ext(p)) + ".html"
}

func pathToRoot(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

func pageTitle(chapter, bookTitle string) string {
	if bookTitle == "" {
		return chapter
	}
	return chapter + " - " + bookTitle
}

func writePage(dst string, p page) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return ferrors.BuildError(fmt.Sprintf("unable to render page %s", dst)).WithCause(err).Build()
	}
	return writeFile(dst, buf.Bytes())
}

// copyStatic copies every non-Markdown file under the source directory
// into the destination.
func copyStatic(ctx context.Context, rctx *Context) error {
	src, err := rctx.SourceDir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return nil //nolint:nilerr // nothing to copy
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return ferrors.FileSystemError(fmt.Sprintf("unable to read %s", p)).WithCause(err).Build()
		}
		return writeFile(filepath.Join(rctx.Destination, rel), data)
	})
}
