package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_ImplementsRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("compile", time.Second)
	r.ObserveBuildDuration("test", time.Second)
	r.IncStageResult("link", ResultFatal)
	r.IncBuildOutcome("success")
	r.ObserveToolDuration("gcc", time.Millisecond)
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncStageResult("compile", ResultSuccess)
	r.IncStageResult("compile", ResultSuccess)
	r.IncStageResult("link", ResultFatal)
	r.IncBuildOutcome("success")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.stageResults.WithLabelValues("compile", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.stageResults.WithLabelValues("link", "fatal")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.buildOutcome.WithLabelValues("success")))
}

func TestPrometheusRecorder_Histograms(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveStageDuration("compile", 150*time.Millisecond)
	r.ObserveBuildDuration("test", time.Second)
	r.ObserveToolDuration("arm-none-eabi-gcc", 90*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fwbuild_stage_duration_seconds"])
	assert.True(t, names["fwbuild_build_duration_seconds"])
	assert.True(t, names["fwbuild_tool_duration_seconds"])
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveStageDuration("compile", time.Second)
	r.ObserveBuildDuration("test", time.Second)
	r.IncStageResult("link", ResultSkipped)
	r.IncBuildOutcome("failed")
	r.ObserveToolDuration("objcopy", time.Second)
}
