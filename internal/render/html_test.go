package render

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

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func sampleBook() *book.Book {
	intro := book.NewChapter("Intro", "# Intro\n\nSee [next](guide/next.md#part) and [site](https://example.com/a.md).\n", "intro.md", nil)
	intro.Number = book.SectionNumber{1}
	next := book.NewChapter("Next", "Back to [intro](../intro.md).\n", "guide/next.md", []string{"Intro"})
	next.Number = book.SectionNumber{1, 1}
	intro.SubItems = []book.Item{
		book.ChapterItem(next),
		book.ChapterItem(book.NewDraftChapter("Later", []string{"Intro"})),
	}
	return book.New().
		PushItem(book.ChapterItem(intro)).
		PushItem(book.SeparatorItem()).
		PushItem(book.PartTitleItem("Appendix"))
}

func TestHTMLRender(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "book")
	cfg, err := config.FromString("[book]\ntitle = \"My Book\"\n")
	require.NoError(t, err)

	rctx := NewContext(root, cfg, sampleBook(), dest, "0.5.0")
	rctx.ChapterTitles["guide/next.md"] = "Custom Next"
	require.NoError(t, NewHTML().Render(context.Background(), rctx))

	intro := readFile(t, filepath.Join(dest, "intro.html"))
	assert.Contains(t, intro, `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, intro, `href="guide/next.html#part"`)
	assert.Contains(t, intro, `href="https://example.com/a.md"`)
	assert.Contains(t, intro, `<title>Intro - My Book</title>`)
	assert.Contains(t, intro, `<strong>1.1.</strong> Custom Next`)
	assert.Contains(t, intro, `class="chapter-item draft"`)
	assert.Contains(t, intro, `<li class="part-title">Appendix</li>`)
	assert.Contains(t, intro, `<li class="spacer"></li>`)

	next := readFile(t, filepath.Join(dest, "guide", "next.html"))
	assert.Contains(t, next, `<title>Custom Next - My Book</title>`)
	assert.Contains(t, next, `href="../intro.html"`)

	index := readFile(t, filepath.Join(dest, "index.html"))
	assert.Contains(t, index, `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, index, `href="guide/next.html"`)

	_, err = os.Stat(filepath.Join(dest, "Later.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestHTMLSmartPunctuation(t *testing.T) {
	b := book.New().PushItem(book.ChapterItem(book.NewChapter("Quote", `"Hello" -- world`, "quote.md", nil)))

	plain := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, NewHTML().Render(context.Background(), NewContext(t.TempDir(), config.Default(), b, plain, "v")))
	assert.Contains(t, readFile(t, filepath.Join(plain, "quote.html")), "&quot;Hello&quot;")

	cfg, err := config.FromString("[output.html]\nsmart-punctuation = true\n")
	require.NoError(t, err)
	smart := filepath.Join(t.TempDir(), "smart")
	require.NoError(t, NewHTML().Render(context.Background(), NewContext(t.TempDir(), cfg, b, smart, "v")))
	assert.Contains(t, readFile(t, filepath.Join(smart, "quote.html")), "&ldquo;Hello&rdquo;")
}

func TestHTMLRejectsBadSmartPunctuation(t *testing.T) {
	cfg, err := config.FromString("[output.html]\nsmart-punctuation = \"yes\"\n")
	require.NoError(t, err)
	err = NewHTML().Render(context.Background(), NewContext(t.TempDir(), cfg, book.New(), t.TempDir(), "v"))
	assert.Error(t, err)
}

func TestHTMLCopiesStaticFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "img", "logo.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "intro.md"), []byte("# Intro"), 0o644))

	dest := filepath.Join(root, "book")
	b := book.New().PushItem(book.ChapterItem(book.NewChapter("Intro", "# Intro", "intro.md", nil)))
	require.NoError(t, NewHTML().Render(context.Background(), NewContext(root, config.Default(), b, dest, "v")))

	assert.Equal(t, "<svg/>", readFile(t, filepath.Join(dest, "img", "logo.svg")))
	_, err := os.Stat(filepath.Join(dest, "intro.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestRewriteLink(t *testing.T) {
	cases := map[string]string{
		"chapter.md":          "chapter.html",
		"dir/chapter.md#frag": "dir/chapter.html#frag",
		"#local":              "#local",
		"image.png":           "image.png",
		"https://x.org/a.md":  "https://x.org/a.md",
		"/abs/a.md":           "/abs/a.md",
		"mailto:a@b.md":       "mailto:a@b.md",
	}
	for in, want := range cases {
		assert.Equal(t, want, rewriteLink(in), in)
	}
}

func TestPathToRoot(t *testing.T) {
	assert.Equal(t, "", pathToRoot("intro.html"))
	assert.Equal(t, "../", pathToRoot("guide/next.html"))
	assert.Equal(t, "../../", pathToRoot("a/b/c.html"))
}
