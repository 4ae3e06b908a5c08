package commands

import (
	"context"
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/build"
	"github.com/rust-lang/mdBook-sub001/internal/config"
	"github.com/rust-lang/mdBook-sub001/internal/loader"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Dir         string `arg:"" optional:"" default:"." help:"Root directory for the book" type:"path"`
	DestDir     string `short:"d" name:"dest-dir" help:"Output directory for the book. Relative paths are interpreted relative to the book's root directory." type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics for this build to a textfile" type:"path"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global) error {
	root, cfg, err := loadConfig(b.Dir)
	if err != nil {
		return err
	}

	var reg *prom.Registry
	runner := build.NewRunner()
	if b.MetricsFile != "" {
		reg = prom.NewRegistry()
		runner.WithRecorder(metrics.NewPrometheusRecorder(reg))
	}

	res, err := RunBuild(ctx, runner, root, cfg, b.DestDir)
	if reg != nil {
		if werr := metrics.WriteTextfile(reg, b.MetricsFile); werr != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(b.MetricsFile), logfields.Error(werr))
		}
	}
	if err != nil {
		return err
	}
	printSummary(g, res)
	return nil
}

// RunBuild loads the book under root and runs every renderer over it.
func RunBuild(ctx context.Context, svc build.Service, root string, cfg *config.Config, destDir string) (*build.Result, error) {
	b, err := loadBook(ctx, root, cfg)
	if err != nil {
		return nil, err
	}
	return svc.Run(ctx, build.Request{Root: root, Config: cfg, Book: b, DestDir: destDir})
}

func loadBook(ctx context.Context, root string, cfg *config.Config) (*book.Book, error) {
	slog.Info("Book building has started", logfields.Path(root))
	return loader.Load(ctx, root, cfg)
}

func printSummary(g *Global, res *build.Result) {
	if g == nil || g.Stdout == nil || res == nil {
		return
	}
	for _, r := range res.Renderers {
		switch r.State {
		case build.StateSkipped:
			fmt.Fprintf(g.Stdout, "%-10s skipped\n", r.Name)
		default:
			fmt.Fprintf(g.Stdout, "%-10s %s -> %s\n", r.Name, r.State, r.Destination)
		}
	}
}
