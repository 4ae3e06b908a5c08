package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdbook"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	external      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics on reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual preprocessor and renderer runs",
			Buckets:   prom.DefBuckets,
		}, []string{"kind", "stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"kind", "stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		external: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "external_invocations_total",
			Help:      "External stage process invocations by mode and outcome",
		}, []string{"mode", "outcome"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome, pr.external)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(kind, stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(kind, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(kind, stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(kind, stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncExternalInvocation(mode, outcome string) {
	if p == nil {
		return
	}
	p.external.WithLabelValues(mode, outcome).Inc()
}
