package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid preprocessor table").
			WithSeverity(SeverityFatal).
			WithContext("stage", "links").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Error() != "invalid preprocessor table" {
			t.Errorf("unexpected message %q", err.Error())
		}

		stage, exists := err.Context().GetString("stage")
		if !exists || stage != "links" {
			t.Errorf("expected context stage=links, got %v", stage)
		}
	})

	t.Run("Wrapped cause", func(t *testing.T) {
		sentinel := errors.New("exited with status 3")
		err := ExternalError("preprocessor failed").WithCause(sentinel).Build()

		if !errors.Is(err, sentinel) {
			t.Error("expected error to wrap sentinel")
		}
		if err.Error() != "preprocessor failed: exited with status 3" {
			t.Errorf("unexpected message %q", err.Error())
		}
		if !err.IsFatal() {
			t.Error("expected external error to be fatal")
		}
	})

	t.Run("Detection through fmt wrapping", func(t *testing.T) {
		inner := CycleError("cycle detected").Build()
		wrapped := fmt.Errorf("resolving preprocessors: %w", inner)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryCycle) {
			t.Error("expected cycle category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected plain errors to default to internal")
		}
	})
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := ConfigError("bad").Build()
	derived := base.WithContext("key", "value")

	if _, ok := base.Context().Get("key"); ok {
		t.Error("original context was mutated")
	}
	if v, _ := derived.Context().GetString("key"); v != "value" {
		t.Errorf("expected derived context value, got %q", v)
	}
}

func TestChain(t *testing.T) {
	root := errors.New("executable file not found in $PATH")
	mid := NotFoundError("unable to run preprocessor \"random\"").WithCause(root).Build()
	top := fmt.Errorf("running renderer html: %w", mid)

	got := Chain(top)
	want := []string{
		"running renderer html",
		"unable to run preprocessor \"random\"",
		"executable file not found in $PATH",
	}
	if len(got) != len(want) {
		t.Fatalf("Chain() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Chain()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if Chain(nil) != nil {
		t.Error("expected nil chain for nil error")
	}
}
