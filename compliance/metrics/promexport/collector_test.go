package promexport

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/meridian-dispatch/compliance-core/compliance/metrics/core"
)

func gatherAll(t *testing.T, reg *prometheus.Registry) []*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	return families
}

func TestCollectorExportsCounter(t *testing.T) {
	registry := core.NewMetricRegistry()
	registry.Counter("erasures_completed_total").Increment(7)

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector("compliance", registry)))

	families := gatherAll(t, promReg)
	found := false
	for _, f := range families {
		if f.GetName() == "compliance_erasures_completed_total" {
			found = true
			assert.Equal(t, 7.0, f.Metric[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "expected exported counter family")
}

func TestCollectorExportsGauge(t *testing.T) {
	registry := core.NewMetricRegistry()
	registry.Gauge("legal_holds_active").Set(3)

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector("", registry)))

	families := gatherAll(t, promReg)
	found := false
	for _, f := range families {
		if f.GetName() == "legal_holds_active" {
			found = true
			assert.Equal(t, 3.0, f.Metric[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestCollectorExportsHistogram(t *testing.T) {
	registry := core.NewMetricRegistry()
	h := registry.Histogram("erasure_duration_ms", core.DefaultLatencyBuckets())
	h.Record(1.0)
	h.Record(5.0)

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector("compliance", registry)))

	families := gatherAll(t, promReg)
	found := false
	for _, f := range families {
		if f.GetName() == "compliance_erasure_duration_ms" {
			found = true
			assert.Equal(t, uint64(2), f.Metric[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}

func TestCollectorExportsLabeledCounter(t *testing.T) {
	registry := core.NewMetricRegistry()
	lc, err := registry.LabeledCounter("dispatch_outcomes_total", 2)
	require.NoError(t, err)
	require.NoError(t, lc.Increment(1, "tenant-a", "ok"))
	require.NoError(t, lc.Increment(2, "tenant-b", "fail"))

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector("compliance", registry)))

	families := gatherAll(t, promReg)
	for _, f := range families {
		if f.GetName() == "compliance_dispatch_outcomes_total" {
			assert.Len(t, f.Metric, 2)
		}
	}
}
