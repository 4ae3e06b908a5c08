package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/rust-lang/mdBook-sub001/cmd/mdbook/commands"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("mdbook"),
		kong.Description("Creates a book from markdown files."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	parser.BindTo(ctx, (*context.Context)(nil))
	err := parser.Run(&commands.Global{Stdout: os.Stdout}, cli)
	stop()

	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
