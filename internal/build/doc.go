// Package build runs the book pipeline.
//
// A build resolves the preprocessor order once, then drives every renderer
// in name order. Each renderer gets a fresh copy of the loaded book, the
// preprocessors that apply to it in resolved order, and finally renders the
// result into its destination. The first hard failure aborts the build.
package build
