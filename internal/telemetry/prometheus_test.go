package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	m := NewMetrics(reg)

	require.NotNil(t, m)
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordCacheResult_IncrementsHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordCacheResult("embedding", true)
	m.RecordCacheResult("embedding", false)

	assert.Equal(t, float64(1), testCounterValue(t, m.CacheHits.WithLabelValues("embedding")))
	assert.Equal(t, float64(1), testCounterValue(t, m.CacheMisses.WithLabelValues("embedding")))
}

func TestRecordError_IncrementsByCategory(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordError("DEPENDENCY_STORE")

	assert.Equal(t, float64(1), testCounterValue(t, m.ErrorsByCategory.WithLabelValues("DEPENDENCY_STORE")))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheResult("embedding", true)
		m.RecordError("INTERNAL")
	})
}

func testCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}
