package extproc

import (
	"errors"
	"fmt"

	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
)

var (
	ErrEmptyCommand = errors.New("command string is empty")
	// ErrExecutableNotFound means the executable could not be spawned
	// because it does not exist.
	ErrExecutableNotFound = errors.New("executable not found")
	ErrNonZeroExit        = errors.New("process exited unsuccessfully")
	ErrMalformedOutput    = errors.New("process output could not be parsed")
	// ErrStdinWrite is logged, never returned: the exit status decides.
	ErrStdinWrite = errors.New("unable to write to process stdin")
)

func notFoundError(inv *Invocation, err error) error {
	return ferrors.NotFoundError(fmt.Sprintf("unable to start %q", inv.Command)).
		WithContext("command", inv.Command).
		WithCause(fmt.Errorf("%w: %w", ErrExecutableNotFound, err)).
		Build()
}

func exitError(inv *Invocation, code int) error {
	return ferrors.ExternalError(fmt.Sprintf("%q exited with status %d", inv.Command, code)).
		WithContext("command", inv.Command).
		WithContext("exit_code", code).
		WithCause(ErrNonZeroExit).
		Build()
}

func malformedError(inv *Invocation, err error) error {
	return ferrors.ProtocolError(fmt.Sprintf("unable to parse the output of %q", inv.Command)).
		WithContext("command", inv.Command).
		WithCause(fmt.Errorf("%w: %w", ErrMalformedOutput, err)).
		Build()
}

func startError(inv *Invocation, err error) error {
	return ferrors.ExternalError(fmt.Sprintf("unable to start %q", inv.Command)).
		WithContext("command", inv.Command).
		WithCause(err).
		Build()
}
