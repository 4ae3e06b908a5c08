package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rust-lang/mdBook-sub001/internal/build"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/plan"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Dir     string `arg:"" optional:"" default:"." help:"Root directory for the book" type:"path"`
	Format  string `short:"f" help:"Output format: text, json, yaml, dot, mermaid" default:"text" enum:"text,json,yaml,dot,mermaid"`
	Output  string `short:"o" help:"Output file path (optional, prints to stdout if not specified)"`
	DestDir string `short:"d" name:"dest-dir" help:"Output directory used for destinations in the plan" type:"path"`
	List    bool   `short:"l" help:"List available formats and exit"`
}

// Run executes the plan command.
func (p *PlanCmd) Run(ctx context.Context, g *Global) error {
	if p.List {
		fmt.Fprintln(g.Stdout, "Available plan formats:")
		fmt.Fprintln(g.Stdout)
		for _, format := range plan.SupportedFormats() {
			fmt.Fprintf(g.Stdout, "  %-10s %s\n", format, plan.FormatDescription(format))
		}
		return nil
	}

	root, cfg, err := loadConfig(p.Dir)
	if err != nil {
		return err
	}
	view, err := plan.Describe(ctx, build.NewRunner(), root, cfg, p.DestDir)
	if err != nil {
		return err
	}
	output, err := plan.Render(view, plan.Format(p.Format))
	if err != nil {
		return err
	}

	if p.Output == "" {
		fmt.Fprint(g.Stdout, output)
		return nil
	}
	if err := os.WriteFile(p.Output, []byte(output), 0o644); err != nil {
		return ferrors.FileSystemError("failed to write output file").WithContext("path", p.Output).WithCause(err).Build()
	}
	slog.Info("Plan written", logfields.Path(p.Output), slog.String("format", p.Format))
	return nil
}
