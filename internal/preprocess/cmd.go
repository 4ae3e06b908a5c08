package preprocess

import (
	"context"
	"errors"
	"fmt"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/extproc"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
)

// Cmd delegates preprocessing to an external program.
type Cmd struct {
	name     string
	command  string
	root     string
	optional bool
	bridge   *extproc.Bridge
}

// NewCmd returns an external preprocessor. Relative executables in command
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

// Run sends the context and book to the command and returns the book it
// prints. A missing optional command passes the book through unchanged.
func (c *Cmd) Run(ctx context.Context, pctx *Context, b *book.Book) (*book.Book, error) {
	inv, err := extproc.Compose(c.command, c.root)
	if err != nil {
		return nil, c.wrap(err)
	}

	out := &book.Book{}
	if _, err := c.bridge.Transform(ctx, inv, []any{pctx, b}, out); err != nil {
		if errors.Is(err, extproc.ErrExecutableNotFound) && c.optional {
			c.warnMissing(ctx)
			return b, nil
		}
		return nil, c.wrap(err)
	}
	return out, nil
}

// Supports asks the command whether it handles renderer. A missing
// optional command answers false.
func (c *Cmd) Supports(ctx context.Context, renderer string) (bool, error) {
	inv, err := extproc.Compose(c.command, c.root)
	if err != nil {
		return false, c.wrap(err)
	}
	outcome, err := c.bridge.Supports(ctx, inv, renderer)
	if err != nil {
		if errors.Is(err, extproc.ErrExecutableNotFound) && c.optional {
			c.warnMissing(ctx)
			return false, nil
		}
		return false, c.wrap(err)
	}
	return outcome.Success(), nil
}

func (c *Cmd) warnMissing(ctx context.Context) {
	observability.WarnContext(ctx, "Optional preprocessor command not found, skipping",
		logfields.Stage(c.name), logfields.Command(c.command))
}

func (c *Cmd) wrap(err error) error {
	if errors.Is(err, extproc.ErrExecutableNotFound) {
		return ferrors.NotFoundError(fmt.Sprintf(
			"the %q preprocessor command %q was not found; install it, or set optional = true in [preprocessor.%s] to skip it",
			c.name, c.command, c.name)).
			WithContext("stage", c.name).
			WithCause(err).
			Build()
	}
	return ferrors.WrapError(err, ferrors.GetCategory(err), fmt.Sprintf("the %q preprocessor failed", c.name)).
		Fatal().
		WithContext("stage", c.name).
		Build()
}
