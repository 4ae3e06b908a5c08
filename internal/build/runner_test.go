package build

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/config"
	"github.com/rust-lang/mdBook-sub001/internal/extproc"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/metrics"
	"github.com/rust-lang/mdBook-sub001/internal/preprocess"
	"github.com/rust-lang/mdBook-sub001/internal/registry"
	"github.com/rust-lang/mdBook-sub001/internal/render"
	"github.com/rust-lang/mdBook-sub001/internal/stage"
)

type recordingPre struct {
	name        string
	unsupported map[string]bool
	fail        bool
	log         *[]string
}

func (p *recordingPre) Name() string { return p.name }

func (p *recordingPre) Supports(_ context.Context, renderer string) (bool, error) {
	return !p.unsupported[renderer], nil
}

func (p *recordingPre) Run(_ context.Context, pctx *preprocess.Context, b *book.Book) (*book.Book, error) {
	*p.log = append(*p.log, p.name+"@"+pctx.Renderer)
	if p.fail {
		return nil, ferrors.ExternalError("boom").Build()
	}
	for ch := range b.Chapters() {
		ch.Content += "+" + p.name
	}
	return b, nil
}

type captureRenderer struct {
	name string
	log  *[]string
	got  *render.Context
}

func (c *captureRenderer) Name() string { return c.name }

func (c *captureRenderer) Render(_ context.Context, rctx *render.Context) error {
	*c.log = append(*c.log, "render@"+c.name)
	c.got = rctx
	return nil
}

type fixture struct {
	runner    *Runner
	log       []string
	renderers map[string]*captureRenderer
	pres      map[string]*recordingPre
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{renderers: map[string]*captureRenderer{}, pres: map[string]*recordingPre{}}
	reg := registry.New(extproc.New())
	for _, name := range []string{"alpha", "beta", "boom"} {
		p := &recordingPre{name: name, unsupported: map[string]bool{}, fail: name == "boom", log: &f.log}
		f.pres[name] = p
		require.NoError(t, reg.RegisterPreprocessor(name, func() preprocess.Preprocessor { return p }))
	}
	for _, name := range []string{"cap-a", "cap-b"} {
		r := &captureRenderer{name: name, log: &f.log}
		f.renderers[name] = r
		require.NoError(t, reg.RegisterRenderer(name, func() render.Renderer { return r }))
	}
	f.runner = NewRunner().WithRegistry(reg).WithVersion("test")
	return f
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func mustConfig(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := config.FromString(src)
	require.NoError(t, err)
	return cfg
}

func oneChapter(content string) *book.Book {
	return book.New().PushItem(book.ChapterItem(book.NewChapter("Chapter", content, "chapter.md", nil)))
}

func TestRunOrdersRenderersAndPreprocessors(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	in := oneChapter("text")

	result, err := f.runner.Run(context.Background(), Request{
		Root: root,
		Config: mustConfig(t, `
[build]
use-default-preprocessors = false
[preprocessor.alpha]
after = ["beta"]
[preprocessor.beta]
[output.cap-b]
[output.cap-a]
`),
		Book: in,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, []string{"beta", "alpha"}, result.Preprocessors)
	assert.Equal(t, []string{
		"beta@cap-a", "alpha@cap-a", "render@cap-a",
		"beta@cap-b", "alpha@cap-b", "render@cap-b",
	}, f.log)

	for _, name := range []string{"cap-a", "cap-b"} {
		got := f.renderers[name].got
		require.NotNil(t, got)
		assert.Equal(t, "text+beta+alpha", got.Book.Sections[0].Chapter.Content, name)
		assert.Equal(t, filepath.Join(root, "book", name), got.Destination)
		assert.Equal(t, "test", got.Version)

		rr, ok := result.Renderer(name)
		require.True(t, ok)
		assert.Equal(t, StateDone, rr.State)
		assert.Equal(t, []string{"beta", "alpha"}, rr.Preprocessors)
	}
	assert.Equal(t, "text", in.Sections[0].Chapter.Content)
}

func TestRunFiltersPreprocessorsPerRenderer(t *testing.T) {
	f := newFixture(t)
	f.pres["beta"].unsupported["cap-b"] = true

	_, err := f.runner.Run(context.Background(), Request{
		Root: t.TempDir(),
		Config: mustConfig(t, `
[build]
use-default-preprocessors = false
[preprocessor.alpha]
renderers = ["cap-b"]
[preprocessor.beta]
[output.cap-a]
[output.cap-b]
`),
		Book: oneChapter("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta@cap-a", "render@cap-a", "alpha@cap-b", "render@cap-b"}, f.log)
	assert.Equal(t, "x+beta", f.renderers["cap-a"].got.Book.Sections[0].Chapter.Content)
	assert.Equal(t, "x+alpha", f.renderers["cap-b"].got.Book.Sections[0].Chapter.Content)
}

func TestRunEmptyOutputUsesHTML(t *testing.T) {
	root := t.TempDir()
	result, err := NewRunner().Run(context.Background(), Request{
		Root:   root,
		Config: config.Default(),
		Book:   oneChapter("# Hello\n"),
	})
	require.NoError(t, err)
	require.Len(t, result.Renderers, 1)

	rr := result.Renderers[0]
	assert.Equal(t, "html", rr.Name)
	assert.Equal(t, StateDone, rr.State)
	assert.Equal(t, filepath.Join(root, "book"), rr.Destination)
	assert.Equal(t, []string{"index", "links"}, rr.Preprocessors)

	_, err = os.Stat(filepath.Join(root, "book", "chapter.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "book", "index.html"))
	assert.NoError(t, err)
}

func TestRunOptionalMissingBackendSucceeds(t *testing.T) {
	logs := captureLogs(t)
	result, err := NewRunner().Run(context.Background(), Request{
		Root: t.TempDir(),
		Config: mustConfig(t, `
[output.random]
command = "mdbook-no-such-backend-xyz"
optional = true
`),
		Book: oneChapter("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	rr, ok := result.Renderer("random")
	require.True(t, ok)
	assert.Equal(t, StateSkipped, rr.State)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "Optional renderer command not found, skipping")
}

func TestRunOptionalMissingPreprocessorSucceeds(t *testing.T) {
	logs := captureLogs(t)
	root := t.TempDir()
	result, err := NewRunner().Run(context.Background(), Request{
		Root: root,
		Config: mustConfig(t, `
[preprocessor.random]
command = "mdbook-no-such-preprocessor-xyz"
optional = true
`),
		Book: oneChapter("# Hello\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	rr, ok := result.Renderer("html")
	require.True(t, ok)
	assert.Equal(t, StateDone, rr.State)
	assert.Equal(t, []string{"index", "links"}, rr.Preprocessors)

	logged := logs.String()
	assert.Contains(t, logged, "level=WARN")
	assert.Contains(t, logged, "Optional preprocessor command not found, skipping")
	assert.Contains(t, logged, "command=mdbook-no-such-preprocessor-xyz")
}

func TestRunRequiredMissingBackendFails(t *testing.T) {
	result, err := NewRunner().Run(context.Background(), Request{
		Root:   t.TempDir(),
		Config: mustConfig(t, "[output.random]\ncommand = \"mdbook-no-such-backend-xyz\"\n"),
		Book:   oneChapter("x"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, extproc.ErrExecutableNotFound))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Equal(t, StatusFailed, result.Status)
	rr, _ := result.Renderer("random")
	assert.Equal(t, StateFailed, rr.State)
}

func TestRunCycleAbortsBeforeAnyStage(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	result, err := f.runner.Run(context.Background(), Request{
		Root: root,
		Config: mustConfig(t, `
[preprocessor.alpha]
before = ["beta"]
[preprocessor.beta]
before = ["alpha"]
[output.cap-a]
`),
		Book: oneChapter("x"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, stage.ErrCycle))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCycle))
	assert.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, f.log)
	assert.Empty(t, result.Renderers)
	_, statErr := os.Stat(filepath.Join(root, "book"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunFailureAbortsRemainingRenderers(t *testing.T) {
	f := newFixture(t)
	result, err := f.runner.Run(context.Background(), Request{
		Root: t.TempDir(),
		Config: mustConfig(t, `
[build]
use-default-preprocessors = false
[preprocessor.boom]
renderers = ["cap-a"]
[output.cap-a]
[output.cap-b]
`),
		Book: oneChapter("x"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"cap-a" renderer`)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryExternal))
	assert.Equal(t, []string{"boom@cap-a"}, f.log)

	a, _ := result.Renderer("cap-a")
	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, []string{"boom"}, a.Preprocessors)
	assert.Equal(t, 0, a.Current)
	assert.Error(t, a.Err)

	b, _ := result.Renderer("cap-b")
	assert.Equal(t, StatePending, b.State)
}

func TestRunPassesTitlesToRenderer(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), Request{
		Root:   t.TempDir(),
		Config: mustConfig(t, "[output.cap-a]\n"),
		Book:   oneChapter("{{#title Custom}}body"),
	})
	require.NoError(t, err)
	got := f.renderers["cap-a"].got
	assert.Equal(t, "body", got.Book.Sections[0].Chapter.Content)
	assert.Equal(t, "Custom", got.ChapterTitles["chapter.md"])
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.runner.Run(ctx, Request{
		Root:   t.TempDir(),
		Config: mustConfig(t, "[output.cap-a]\n"),
		Book:   oneChapter("x"),
	})
	require.Error(t, err)
	assert.Equal(t, StatusCanceled, result.Status)
	assert.Empty(t, f.log)
}

func TestRunRequiresConfigAndBook(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), Request{Root: t.TempDir(), Book: book.New()})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = NewRunner().Run(context.Background(), Request{Root: t.TempDir(), Config: config.Default()})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestRunDestDirOverride(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	_, err := f.runner.Run(context.Background(), Request{
		Root:    root,
		Config:  mustConfig(t, "[output.cap-a]\n"),
		Book:    oneChapter("x"),
		DestDir: "site",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "site"), f.renderers["cap-a"].got.Destination)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	external []string
}

func (r *countingRecorder) IncExternalInvocation(mode, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.external = append(r.external, mode+"/"+outcome)
}

func (r *countingRecorder) IncStageResult(kind, stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[kind+"/"+stage] = result
}

func (r *countingRecorder) IncBuildOutcome(outcome metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) ObserveBuildDuration(time.Duration) {}

func TestRunRecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &countingRecorder{results: map[string]metrics.ResultLabel{}}
	f.runner.WithRecorder(rec)

	_, err := f.runner.Run(context.Background(), Request{
		Root: t.TempDir(),
		Config: mustConfig(t, `
[build]
use-default-preprocessors = false
[preprocessor.alpha]
[output.cap-a]
`),
		Book: oneChapter("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]metrics.ResultLabel{
		"preprocessor/alpha": metrics.ResultSuccess,
		"renderer/cap-a":     metrics.ResultSuccess,
	}, rec.results)
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
}

func TestCustomRegistryBridgeCountsInvocations(t *testing.T) {
	cfg := `
[build]
use-default-preprocessors = false
[output.random]
command = "mdbook-no-such-backend-xyz"
optional = true
`
	orders := map[string]func(*registry.Registry, metrics.Recorder) *Runner{
		"registry then recorder": func(reg *registry.Registry, rec metrics.Recorder) *Runner {
			return NewRunner().WithRegistry(reg).WithRecorder(rec)
		},
		"recorder then registry": func(reg *registry.Registry, rec metrics.Recorder) *Runner {
			return NewRunner().WithRecorder(rec).WithRegistry(reg)
		},
	}
	for name, build := range orders {
		t.Run(name, func(t *testing.T) {
			reg := registry.NewEmpty(extproc.New().WithOutput(io.Discard, io.Discard))
			rec := &countingRecorder{results: map[string]metrics.ResultLabel{}}
			runner := build(reg, rec)
			assert.Same(t, reg.Bridge(), runner.bridge)

			_, err := runner.Run(context.Background(), Request{
				Root:   t.TempDir(),
				Config: mustConfig(t, cfg),
				Book:   oneChapter("x"),
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"sink/not_found"}, rec.external)
		})
	}
}
