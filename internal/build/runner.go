package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rust-lang/mdBook-sub001/internal/book"
	"github.com/rust-lang/mdBook-sub001/internal/extproc"
	ferrors "github.com/rust-lang/mdBook-sub001/internal/foundation/errors"
	"github.com/rust-lang/mdBook-sub001/internal/logfields"
	"github.com/rust-lang/mdBook-sub001/internal/metrics"
	"github.com/rust-lang/mdBook-sub001/internal/observability"
	"github.com/rust-lang/mdBook-sub001/internal/preprocess"
	"github.com/rust-lang/mdBook-sub001/internal/registry"
	"github.com/rust-lang/mdBook-sub001/internal/render"
	"github.com/rust-lang/mdBook-sub001/internal/stage"
	"github.com/rust-lang/mdBook-sub001/internal/version"
)

// Runner is the standard Service implementation.
type Runner struct {
	registry *registry.Registry
	bridge   *extproc.Bridge
	recorder metrics.Recorder
	version  string
}

// NewRunner returns a runner with the built-in stages and external
// commands spawned through a default bridge.
func NewRunner() *Runner {
	bridge := extproc.New()
	return &Runner{
		registry: registry.New(bridge),
		bridge:   bridge,
		recorder: metrics.NoopRecorder{},
		version:  version.Version,
	}
}

// WithRegistry replaces the stage registry. External invocations are then
// counted on the registry's bridge.
func (s *Runner) WithRegistry(r *registry.Registry) *Runner {
	s.registry = r
	s.bridge = r.Bridge()
	if _, noop := s.recorder.(metrics.NoopRecorder); !noop {
		s.bridge.WithRecorder(s.recorder)
	}
	return s
}

// WithRecorder sets the metrics recorder, including for the registry's
// bridge.
func (s *Runner) WithRecorder(r metrics.Recorder) *Runner {
	if r == nil {
		return s
	}
	s.recorder = r
	s.bridge.WithRecorder(r)
	return s
}

// WithVersion sets the version reported to stages.
func (s *Runner) WithVersion(v string) *Runner {
	s.version = v
	return s
}

// Registry returns the stage registry.
func (s *Runner) Registry() *registry.Registry { return s.registry }

// Run builds the book once per renderer.
func (s *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{ID: uuid.NewString(), StartTime: start}
	ctx = observability.WithBuildID(ctx, result.ID)

	finish := func(status Status, err error) (*Result, error) {
		result.Status = status
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		s.recorder.ObserveBuildDuration(result.Duration)
		switch status {
		case StatusSuccess:
			s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
			observability.InfoContext(ctx, "Book built",
				logfields.DurationMS(float64(result.Duration.Milliseconds())),
				logfields.Count(len(result.Renderers)))
		case StatusCanceled:
			s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		default:
			s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		}
		return result, err
	}

	if req.Config == nil {
		return finish(StatusFailed, ferrors.ValidationError("a configuration is required").Build())
	}
	if req.Book == nil {
		return finish(StatusFailed, ferrors.ValidationError("a loaded book is required").Build())
	}
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return finish(StatusFailed, ferrors.FileSystemError("unable to resolve the book root").WithCause(err).Build())
	}

	plan, err := NewPlan(req.Config)
	if err != nil {
		return finish(StatusFailed, err)
	}
	result.Preprocessors = stage.Names(plan.Preprocessors)

	base, err := BaseDir(root, req.Config, req.DestDir)
	if err != nil {
		return finish(StatusFailed, err)
	}

	result.Renderers = make([]RendererResult, len(plan.Renderers))
	for i, d := range plan.Renderers {
		result.Renderers[i] = RendererResult{
			Name:        d.Name,
			State:       StatePending,
			Destination: Destination(base, d.Name, len(plan.Renderers)),
		}
	}

	observability.InfoContext(ctx, "Starting book build",
		logfields.Path(root),
		logfields.Count(len(plan.Renderers)))

	for i, d := range plan.Renderers {
		if err := ctx.Err(); err != nil {
			return finish(StatusCanceled, ferrors.RuntimeError("build canceled").WithCause(err).Build())
		}
		rr := &result.Renderers[i]
		if err := s.runRenderer(ctx, root, req, plan, d, rr); err != nil {
			if ctx.Err() != nil {
				return finish(StatusCanceled, err)
			}
			return finish(StatusFailed, err)
		}
	}
	return finish(StatusSuccess, nil)
}

func (s *Runner) runRenderer(ctx context.Context, root string, req Request, plan *Plan, d stage.Descriptor, rr *RendererResult) (err error) {
	start := time.Now()
	ctx = observability.WithRenderer(ctx, d.Name)
	kind := string(stage.KindRenderer)
	defer func() {
		rr.Duration = time.Since(start)
		if err != nil {
			rr.Err = err
			rr.State = StateFailed
			err = fmt.Errorf("unable to build the book with the %q renderer: %w", d.Name, err)
		}
	}()

	renderer, err := s.registry.Renderer(d, root)
	if err != nil {
		return err
	}

	rr.State = StateResolvingPreprocessors
	preprocessors, err := s.Applicable(ctx, plan, root, d.Name)
	if err != nil {
		return err
	}

	cfg := req.Config.Clone()
	pctx := preprocess.NewContext(root, cfg, d.Name, s.version)
	b := req.Book.Clone()
	for i, p := range preprocessors {
		rr.State = StateRunningPreprocessor
		rr.Current = i
		rr.Preprocessors = append(rr.Preprocessors, p.Name())
		if b, err = s.runPreprocessor(ctx, p, pctx, b); err != nil {
			return err
		}
	}

	rr.State = StateRendering
	rctx := render.NewContext(root, cfg, b, rr.Destination, s.version)
	rctx.ChapterTitles = pctx.ChapterTitles

	observability.InfoContext(ctx, "Running renderer", logfields.Path(rr.Destination))
	stageStart := time.Now()
	err = renderer.Render(ctx, rctx)
	s.recorder.ObserveStageDuration(kind, d.Name, time.Since(stageStart))
	switch {
	case err == nil:
		s.recorder.IncStageResult(kind, d.Name, metrics.ResultSuccess)
		rr.State = StateDone
		return nil
	case errors.Is(err, render.ErrSkipped):
		s.recorder.IncStageResult(kind, d.Name, metrics.ResultSkipped)
		rr.State = StateSkipped
		return nil
	default:
		s.recorder.IncStageResult(kind, d.Name, resultLabel(ctx))
		return err
	}
}

func (s *Runner) runPreprocessor(ctx context.Context, p preprocess.Preprocessor, pctx *preprocess.Context, b *book.Book) (*book.Book, error) {
	ctx = observability.WithStage(ctx, p.Name())
	kind := string(stage.KindPreprocessor)
	observability.DebugContext(ctx, "Running preprocessor")

	start := time.Now()
	out, err := p.Run(ctx, pctx, b)
	s.recorder.ObserveStageDuration(kind, p.Name(), time.Since(start))
	if err != nil {
		s.recorder.IncStageResult(kind, p.Name(), resultLabel(ctx))
		return nil, err
	}
	if out == nil {
		s.recorder.IncStageResult(kind, p.Name(), metrics.ResultFatal)
		return nil, ferrors.InternalError(fmt.Sprintf("the %q preprocessor returned no book", p.Name())).Build()
	}
	s.recorder.IncStageResult(kind, p.Name(), metrics.ResultSuccess)
	return out, nil
}

// Applicable returns the preprocessors of plan that run for renderer, in
// order. An explicit renderers list decides membership; otherwise the
// preprocessor's support query does.
func (s *Runner) Applicable(ctx context.Context, plan *Plan, root, renderer string) ([]preprocess.Preprocessor, error) {
	var out []preprocess.Preprocessor
	for _, d := range plan.Preprocessors {
		if restricted, allowed := d.RestrictedTo(renderer); restricted {
			if allowed {
				p, err := s.registry.Preprocessor(d, root)
				if err != nil {
					return nil, err
				}
				out = append(out, p)
			}
			continue
		}

		p, err := s.registry.Preprocessor(d, root)
		if err != nil {
			return nil, err
		}
		ok, err := p.Supports(ctx, renderer)
		if err != nil {
			return nil, err
		}
		if !ok {
			observability.DebugContext(ctx, "Preprocessor does not support renderer, skipping",
				logfields.Stage(d.Name), logfields.Renderer(renderer))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func resultLabel(ctx context.Context) metrics.ResultLabel {
	if ctx.Err() != nil {
		return metrics.ResultCanceled
	}
	return metrics.ResultFatal
}
