package commands

import (
	"context"
	"log/slog"

	"github.com/rust-lang/mdBook-sub001/internal/build"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Dir     string `arg:"" optional:"" default:"." help:"Root directory for the book" type:"path"`
	DestDir string `short:"d" name:"dest-dir" help:"Output directory for the book. Relative paths are interpreted relative to the book's root directory." type:"path"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global) error {
	root, cfg, err := loadConfig(w.Dir)
	if err != nil {
		return err
	}
	watcher, err := watch.New(root, cfg)
	if err != nil {
		return err
	}

	runner := build.NewRunner()
	rebuild := func(ctx context.Context) error {
		// book.toml may have changed since the last build.
		_, cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		res, err := RunBuild(ctx, runner, root, cfg, w.DestDir)
		if err != nil {
			return err
		}
		printSummary(g, res)
		return nil
	}

	if err := rebuild(ctx); err != nil {
		slog.Warn("Initial build failed", logfields.Error(err))
	}
	return watcher.Run(ctx, rebuild)
}
