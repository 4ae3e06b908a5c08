// Package errors provides the classified error type used across the build
// pipeline.
//
// A ClassifiedError carries a category (which kind of failure happened), a
// severity, a context map of structured details, and an optional cause. The
// CLI adapter turns it into an exit code and a message followed by the
// causal chain.
//
//	err := errors.ExternalError("preprocessor failed").
//		WithContext("stage", name).
//		WithCause(exitErr).
//		Build()
package errors
