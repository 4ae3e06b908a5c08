package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rust-lang/mdBook-sub001/internal/extproc"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// Cmd hands the render context to an external program. The program runs
// inside the destination directory with inherited stdout and stderr.
type Cmd struct {
	name     string
	command  string
	root     string
	optional bool
	bridge   *extproc.Bridge
}

// NewCmd returns an external renderer. Relative executables in command
// resolve against root.
func NewCmd(name, command, root string, optional bool, bridge *extproc.Bridge) *Cmd {
	if bridge == nil {
		bridge = extproc.New()
	}
	return &Cmd{name: name, command: command, root: root, optional: optional, bridge: bridge}
}

func (c *Cmd) Name() string { return c.name }

// Command returns the configured command line.
func (c *Cmd) Command() string { return c.command }

// Render runs the command. A missing optional command logs a warning and
// returns ErrSkipped.
func (c *Cmd) Render(ctx context.Context, rctx *Context) error {
	inv, err := extproc.Compose(c.command, c.root)
	if err != nil {
		return c.wrap(err)
	}
	if err := os.MkdirAll(rctx.Destination, 0o755); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("unable to create the output directory for %q", c.name)).
			WithContext("path", rctx.Destination).
			WithCause(err).
			Build()
	}

	observability.InfoContext(ctx, "Invoking the external renderer",
		logfields.Renderer(c.name), logfields.Command(c.command))

	inv = c.fallbackToDestination(ctx, inv.WithDir(rctx.Destination))
	if _, err := c.bridge.Sink(ctx, inv, rctx); err != nil {
		if errors.Is(err, extproc.ErrExecutableNotFound) && c.optional {
			observability.WarnContext(ctx, "Optional renderer command not found, skipping",
				logfields.Renderer(c.name), logfields.Command(c.command))
			return fmt.Errorf("%w: %s", ErrSkipped, c.name)
		}
		return c.wrap(err)
	}
	return nil
}

// fallbackToDestination retries a relative program path against the
// output directory when it does not exist under the book root. The
// output-relative lookup is deprecated.
func (c *Cmd) fallbackToDestination(ctx context.Context, inv *extproc.Invocation) *extproc.Invocation {
	if inv.Relative == "" {
		return inv
	}
	if _, err := os.Stat(inv.Path); err == nil {
		return inv
	}
	legacy, err := filepath.Abs(filepath.Join(inv.Dir, filepath.FromSlash(inv.Relative)))
	if err != nil {
		return inv
	}
	if _, err := os.Stat(legacy); err != nil {
		return inv
	}
	observability.WarnContext(ctx, "Renderer command was found relative to the output directory; "+
		"resolve it against the book root instead, this lookup is deprecated",
		logfields.Renderer(c.name), logfields.Command(c.command), logfields.Path(legacy))
	inv.Path = legacy
	return inv
}

func (c *Cmd) wrap(err error) error {
	if errors.Is(err, extproc.ErrExecutableNotFound) {
		return ferrors.NotFoundError(fmt.Sprintf(
			"the %q renderer command %q was not found; install it, or set optional = true in [output.%s] to skip it",
			c.name, c.command, c.name)).
			WithContext("renderer", c.name).
			WithCause(err).
			Build()
	}
	return ferrors.WrapError(err, ferrors.GetCategory(err), fmt.Sprintf("the %q renderer failed", c.name)).
		Fatal().
		WithContext("renderer", c.name).
		Build()
}
