package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("preprocessor", "links", 150*time.Millisecond)
	pr.IncStageResult("preprocessor", "links", ResultSuccess)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.IncExternalInvocation("transform", "success")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"mdbook_stage_duration_seconds",
		"mdbook_stage_results_total",
		"mdbook_build_duration_seconds",
		"mdbook_build_outcomes_total",
		"mdbook_external_invocations_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("renderer", "html", time.Second)
	pr.IncBuildOutcome(BuildOutcomeFailed)
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncStageResult("renderer", "html", ResultFatal)
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	path := filepath.Join(t.TempDir(), "mdbook.prom")
	require.NoError(t, WriteTextfile(reg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `mdbook_build_outcomes_total{outcome="success"} 1`))
}
