package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rust-lang/mdBook-sub001/internal/config"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/loader"
)

const (
	initSummary = "# Summary\n\n- [Chapter 1](./chapter_1.md)\n"
	initChapter = "# Chapter 1\n"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Dir   string `arg:"" optional:"" default:"." help:"Directory to create the book in" type:"path"`
	Title string `help:"Sets the book title"`
	Force bool   `help:"Overwrite existing files"`
}

func (i *InitCmd) Run(g *Global) error {
	fmt.Fprintf(g.Stdout, "Creating a new book in %s\n", i.Dir)
	if err := RunInit(i.Dir, i.Title, i.Force); err != nil {
		return err
	}
	fmt.Fprintln(g.Stdout, "All done, no errors...")
	return nil
}

// RunInit writes book.toml, src/SUMMARY.md and src/chapter_1.md under dir.
// Existing files are only replaced when force is set.
func RunInit(dir, title string, force bool) error {
	cfg := config.Default()
	cfg.Set("book.authors", []any{})
	cfg.Set("book.language", config.DefaultBookConfig().Language)
	cfg.Set("book.src", config.DefaultBookConfig().Src)
	if title != "" {
		cfg.Set("book.title", title)
	}

	files := []struct {
		path  string
		write func(*os.File) error
	}{
		{filepath.Join(dir, ConfigFile), func(f *os.File) error { return cfg.WriteTOML(f) }},
		{filepath.Join(dir, "src", loader.SummaryFile), writeString(initSummary)},
		{filepath.Join(dir, "src", "chapter_1.md"), writeString(initChapter)},
	}

	if !force {
		for _, f := range files {
			if _, err := os.Stat(f.path); err == nil {
				return ferrors.ValidationError(fmt.Sprintf("%s already exists; use --force to overwrite", f.path)).Build()
			} else if !errors.Is(err, fs.ErrNotExist) {
				return ferrors.FileSystemError(fmt.Sprintf("unable to inspect %s", f.path)).WithCause(err).Build()
			}
		}
	}

	for _, f := range files {
		if err := writeInitFile(f.path, f.write); err != nil {
			return err
		}
	}
	return nil
}

func writeString(s string) func(*os.File) error {
	return func(f *os.File) error {
		_, err := f.WriteString(s)
		return err
	}
}

func writeInitFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to create directory for %s", path)).WithCause(err).Build()
	}
	f, err := os.Create(path)
	if err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to create %s", path)).WithCause(err).Build()
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return ferrors.FileSystemError(fmt.Sprintf("unable to write %s", path)).WithCause(err).Build()
	}
	if err := f.Close(); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to write %s", path)).WithCause(err).Build()
	}
	return nil
}
