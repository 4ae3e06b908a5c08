package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExpandEscaped(t *testing.T) {
	title := "t"
	in := "```hbs\n\\{{#include file.rs}} << an escaped link!\n```"
	want := "```hbs\n{{#include file.rs}} << an escaped link!\n```"
	assert.Equal(t, want, expand(context.Background(), in, "", "", 0, &title))
}

func TestExpandTitle(t *testing.T) {
	title := "Original"
	got := expand(context.Background(), "{{#title My Title}}\n# My Chapter\n", "", "", 0, &title)
	assert.Equal(t, "\n# My Chapter\n", got)
	assert.Equal(t, "My Title", title)
}

func TestExpandIncludeSelections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lines.txt"), "Lorem\nipsum\ndolor\nsit\namet\n")
	writeFile(t, filepath.Join(dir, "anchored.rs"), "fn a() {}\n// ANCHOR: body\nlet x = 1;\n// ANCHOR: inner\nlet y = 2;\n// ANCHOR_END: inner\n// ANCHOR_END: body\nfn b() {}\n")

	cases := map[string]string{
		"{{#include lines.txt}}":         "Lorem\nipsum\ndolor\nsit\namet",
		"{{#include lines.txt:2}}":       "ipsum",
		"{{#include lines.txt:2:3}}":     "ipsum\ndolor",
		"{{#include lines.txt:4:}}":      "sit\namet",
		"{{#include lines.txt::2}}":      "Lorem\nipsum",
		"{{#include lines.txt:5:3}}":     "",
		"{{#include anchored.rs:body}}":  "let x = 1;\nlet y = 2;",
		"{{#include anchored.rs:inner}}": "let y = 2;",
		"{{#include anchored.rs:none}}":  "",
		"{{ #include lines.txt:1 }}":     "Lorem",
	}
	for in, want := range cases {
		title := ""
		assert.Equal(t, want, expand(context.Background(), in, dir, "ch.md", 0, &title), in)
	}
}

func TestExpandRustdocInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.rs"), "use std;\n// ANCHOR: main\nfn main() {}\n// ANCHOR_END: main\nmod x;\n")

	title := ""
	got := expand(context.Background(), "{{#rustdoc_include main.rs:main}}", dir, "ch.md", 0, &title)
	assert.Equal(t, "# use std;\nfn main() {}\n# mod x;", got)

	got = expand(context.Background(), "{{#rustdoc_include main.rs:3}}", dir, "ch.md", 0, &title)
	assert.Equal(t, "# use std;\n# // ANCHOR: main\nfn main() {}\n# // ANCHOR_END: main\n# mod x;", got)
}

func TestExpandPlayground(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ex.rs"), "fn main() {}")

	title := ""
	got := expand(context.Background(), "{{#playground ex.rs editable}}", dir, "ch.md", 0, &title)
	assert.Equal(t, "```rust,editable\nfn main() {}\n```\n", got)
}

func TestExpandNestedIncludesResolveRelativeToIncludedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "parts", "outer.md"), "outer {{#include inner/leaf.md}}")
	writeFile(t, filepath.Join(dir, "parts", "inner", "leaf.md"), "leaf")

	title := ""
	assert.Equal(t, "A outer leaf Z", expand(context.Background(), "A {{#include parts/outer.md}} Z", dir, "ch.md", 0, &title))
}

func TestExpandCyclicIncludeStops(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "self.md"), "x{{#include self.md}}")

	title := ""
	got := expand(context.Background(), "{{#include self.md}}", dir, "ch.md", 0, &title)
	assert.Equal(t, "xxxxxxxxxx", got)
}

func TestExpandMissingFileKeepsLink(t *testing.T) {
	title := ""
	in := "before {{#include nope.md}} after"
	assert.Equal(t, in, expand(context.Background(), in, t.TempDir(), "ch.md", 0, &title))
}

func TestExpandUnknownTypeIgnored(t *testing.T) {
	title := ""
	in := "{{#unknown thing}}"
	assert.Equal(t, in, expand(context.Background(), in, t.TempDir(), "ch.md", 0, &title))
}

func TestLinksRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "guide", "snippet.md"), "included text\n")

	ch := book.NewChapter("Guide", "{{#title Custom}}Start {{#include snippet.md}}", "guide/intro.md", nil)
	b := book.New().PushItem(book.ChapterItem(ch))
	pctx := NewContext(root, config.Default(), "html", "v")

	out, err := NewLinks().Run(context.Background(), pctx, b)
	require.NoError(t, err)
	assert.Equal(t, "Start included text", out.Sections[0].Chapter.Content)
	assert.Equal(t, "Guide", out.Sections[0].Chapter.Name)
	assert.Equal(t, map[string]string{"guide/intro.md": "Custom"}, pctx.ChapterTitles)
}

func TestParseSelection(t *testing.T) {
	assert.Equal(t, lineSelection{}, parseSelection(""))
	assert.Equal(t, lineSelection{hasStart: true, start: 0, hasEnd: true, end: 1}, parseSelection("0"))
	assert.Equal(t, lineSelection{anchor: "-1"}, parseSelection("-1"))
	assert.Equal(t, lineSelection{hasStart: true, start: 2}, parseSelection("3:x"))
	assert.Equal(t, lineSelection{hasStart: true, start: 1, hasEnd: true, end: 4}, parseSelection("2:4"))
	assert.Equal(t, lineSelection{hasEnd: true, end: 5}, parseSelection(":5"))
	assert.Equal(t, lineSelection{anchor: "setup"}, parseSelection("setup"))
}
