package build

import (
	"context"
	"time"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/config"
)

// Service executes book builds. The CLI and the watcher both route
// through it.
type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request contains the inputs of one build.
type Request struct {
	// Root is the book root directory.
	Root string
	// Config is the loaded book configuration.
	Config *config.Config
	// Book is the loaded book. It is never modified; every renderer works
	// on its own copy.
	Book *book.Book
	// DestDir overrides <root>/<build.build-dir>. Relative paths resolve
	// against Root.
	DestDir string
}

// Status is the overall outcome of a build.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// IsSuccess reports whether every renderer completed.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// RendererState tracks one renderer through the pipeline.
type RendererState string

const (
	StatePending                RendererState = "pending"
	StateResolvingPreprocessors RendererState = "resolving_preprocessors"
	StateRunningPreprocessor    RendererState = "running_preprocessor"
	StateRendering              RendererState = "rendering"
	StateDone                   RendererState = "done"
	// StateSkipped marks an optional external renderer whose command is
	// missing. It counts as completed.
	StateSkipped RendererState = "skipped"
	StateFailed  RendererState = "failed"
)

// IsTerminal reports whether the state is final.
func (s RendererState) IsTerminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// RendererResult records what happened for one renderer.
type RendererResult struct {
	Name        string
	State       RendererState
	Destination string
	// Preprocessors lists the preprocessors applied, in order.
	Preprocessors []string
	// Current is the index into Preprocessors of the running (or failed)
	// preprocessor while State is StateRunningPreprocessor.
	Current  int
	Duration time.Duration
	Err      error
}

// Result contains the outcome of a build.
type Result struct {
	ID     string
	Status Status
	// Preprocessors is the resolved preprocessor order shared by every
	// renderer before applicability filtering.
	Preprocessors []string
	Renderers     []RendererResult
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// Renderer returns the result for the named renderer.
func (r *Result) Renderer(name string) (*RendererResult, bool) {
	for i := range r.Renderers {
		if r.Renderers[i].Name == name {
			return &r.Renderers[i], true
		}
	}
	return nil, false
}
