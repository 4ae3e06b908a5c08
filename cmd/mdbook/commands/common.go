// Package commands implements the mdbook command line.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
)

// ConfigFile is the book configuration file inside the book root.
const ConfigFile = "book.toml"

// Global carries process-wide state shared by subcommands.
type Global struct {
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" short:"V" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build a book from its markdown files"`
	Plan  PlanCmd  `cmd:"" help:"Show the resolved preprocessor and renderer plan without building"`
	Watch WatchCmd `cmd:"" help:"Watch the book's files and rebuild on changes"`
	Clean CleanCmd `cmd:"" help:"Delete the built book"`
	Init  InitCmd  `cmd:"" help:"Create the boilerplate structure and files of a new book"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose, os.Getenv(config.LogEnvVar))}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel gives -v precedence over MDBOOK_LOG. Unknown values fall
// back to info.
func parseLogLevel(verbose bool, env string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads <root>/book.toml, falling back to defaults when it does
// not exist. .env files in root are loaded first so MDBOOK_* overrides
// from them apply.
func loadConfig(root string) (string, *config.Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", nil, ferrors.FileSystemError(fmt.Sprintf("unable to resolve book root %s", root)).WithCause(err).Build()
	}
	loaded, err := config.LoadEnvFiles(absRoot)
	if err != nil {
		return "", nil, ferrors.WrapError(err, ferrors.CategoryConfig, "unable to load .env files").Build()
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment file", logfields.Path(f))
	}

	path := filepath.Join(absRoot, ConfigFile)
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("No book.toml found, using the default configuration", logfields.Path(path))
		cfg = config.Default()
	case err != nil:
		return "", nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration file").
			WithContext("path", path).
			Build()
	}

	cfg.UpdateFromEnv(os.Environ())
	if err := cfg.Validate(); err != nil {
		return "", nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration").Build()
	}
	return absRoot, cfg, nil
}
