package stage

import (
	"errors"
	"fmt"

	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
)

var (
	// ErrConfigShape marks a stage table or field with the wrong type.
	ErrConfigShape = errors.New("configuration has an unexpected shape")
	// ErrCycle marks ordering constraints that cannot all be satisfied.
	ErrCycle = errors.New("cyclic dependency detected")
)

func shapeError(kind Kind, name string, err error) error {
	msg := fmt.Sprintf("invalid [%s] table", kind.Table())
	if name != "" {
		msg = fmt.Sprintf("invalid [%s.%s] table", kind.Table(), name)
	}
	return ferrors.ConfigError(msg).
		WithContext("kind", string(kind)).
		WithContext("stage", name).
		WithCause(fmt.Errorf("%w: %w", ErrConfigShape, err)).
		Build()
}

func cycleError(kind Kind, remaining []string) error {
	return ferrors.CycleError(fmt.Sprintf("cyclic dependency detected in %ss", kind)).
		WithContext("stages", remaining).
		WithCause(fmt.Errorf("%w among %q", ErrCycle, remaining)).
		Build()
}
