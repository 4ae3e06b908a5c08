package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for pipeline metrics.
type Recorder interface {
	// ObserveStageDuration records a preprocessor or renderer run; kind is
	// "preprocessor" or "renderer".
	ObserveStageDuration(kind, stage string, d time.Duration)
	IncStageResult(kind, stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	// IncExternalInvocation counts external process calls by mode
	// (supports, transform, sink) and outcome.
	IncExternalInvocation(mode, outcome string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                 {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)                  {}
func (NoopRecorder) IncExternalInvocation(string, string)               {}
