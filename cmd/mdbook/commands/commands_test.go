package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("mdbook"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	err = kctx.Run(&Global{Stdout: &out}, &cli)
	return out.String(), err
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		verbose bool
		env     string
		want    slog.Level
	}{
		{false, "", slog.LevelInfo},
		{true, "error", slog.LevelDebug},
		{false, "DEBUG", slog.LevelDebug},
		{false, "warn", slog.LevelWarn},
		{false, "error", slog.LevelError},
		{false, "nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.verbose, tt.env); got != tt.want {
			t.Errorf("parseLogLevel(%v, %q) = %v, want %v", tt.verbose, tt.env, got, tt.want)
		}
	}
}

func TestInitCreatesBook(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "init", dir, "--title", "My Book")
	require.NoError(t, err)
	assert.Contains(t, out, "All done")

	cfg, err := config.Load(filepath.Join(dir, ConfigFile))
	require.NoError(t, err)
	title, _, err := cfg.Tree().String("book.title")
	require.NoError(t, err)
	assert.Equal(t, "My Book", title)

	summary, err := os.ReadFile(filepath.Join(dir, "src", "SUMMARY.md"))
	require.NoError(t, err)
	assert.Equal(t, initSummary, string(summary))
	assert.FileExists(t, filepath.Join(dir, "src", "chapter_1.md"))
}

func TestInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("[book]\ntitle = \"keep\"\n"), 0o644))

	err := RunInit(dir, "", false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	data, _ := os.ReadFile(filepath.Join(dir, ConfigFile))
	assert.Contains(t, string(data), "keep")

	require.NoError(t, RunInit(dir, "", true))
	data, _ = os.ReadFile(filepath.Join(dir, ConfigFile))
	assert.NotContains(t, string(data), "keep")
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MDBOOK_BUILD__BUILD_DIR", "out")

	root, cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
	buildCfg, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, "out", buildCfg.BuildDir)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("[book\n"), 0o644))

	_, _, err := loadConfig(dir)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestBuildEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RunInit(dir, "Book", false))
	metricsFile := filepath.Join(dir, "metrics.prom")

	out, err := runCLI(t, "build", dir, "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "html")
	assert.FileExists(t, filepath.Join(dir, "book", "chapter_1.html"))
	assert.FileExists(t, filepath.Join(dir, "book", "index.html"))

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mdbook_build_outcomes_total")

	_, err = runCLI(t, "clean", dir)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "book"))
}

func TestBuildMissingSummary(t *testing.T) {
	_, err := runCLI(t, "build", t.TempDir())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryLoad))
}

func TestBuildMissingRequiredRenderer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RunInit(dir, "", false))
	f, err := os.OpenFile(filepath.Join(dir, ConfigFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n[output.mdbook-no-such-renderer-xyz]\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = runCLI(t, "build", dir)
	require.Error(t, err)
	assert.Equal(t, 8, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RunInit(dir, "", false))

	out, err := runCLI(t, "plan", dir, "--format", "json")
	require.NoError(t, err)
	var view struct {
		Renderers []struct {
			Renderer      string   `json:"renderer"`
			Preprocessors []string `json:"preprocessors"`
		} `json:"renderers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Renderers, 1)
	assert.Equal(t, "html", view.Renderers[0].Renderer)
	assert.Equal(t, []string{"index", "links"}, view.Renderers[0].Preprocessors)

	out, err = runCLI(t, "plan", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "mermaid")
}

func TestCleanRefusesBookRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "clean", dir, "--dest-dir", dir)
	require.Error(t, err)
	assert.DirExists(t, dir)
}
