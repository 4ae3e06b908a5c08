package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rust-lang/mdBook-sub001/internal/build"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Dir     string `arg:"" optional:"" default:"." help:"Root directory for the book" type:"path"`
	DestDir string `short:"d" name:"dest-dir" help:"Output directory to delete instead of build.build-dir" type:"path"`
}

func (c *CleanCmd) Run() error {
	root, cfg, err := loadConfig(c.Dir)
	if err != nil {
		return err
	}
	dir, err := build.BaseDir(root, cfg, c.DestDir)
	if err != nil {
		return err
	}
	if dir == root {
		return ferrors.ValidationError(fmt.Sprintf("refusing to delete the book root %s", root)).Build()
	}
	if err := os.RemoveAll(dir); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to remove %s", dir)).WithCause(err).Build()
	}
	slog.Info("Removed build directory", logfields.Path(dir))
	return nil
}
