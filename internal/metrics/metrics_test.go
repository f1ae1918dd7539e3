package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.Cycle("fix")
	m.EmptyRead()
	m.Sentence("complete")
	m.Fix(3, 83, 3000, true, true)
	m.NoData()
}

func TestFixKeepsUnavailableValues(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Fix(3, 83, 3000, true, true)
	m.Fix(2, 0, 0, false, false)
	assert.Equal(t, testutil.ToFloat64(m.Motion), 2.0)
	assert.Equal(t, testutil.ToFloat64(m.GroundKt), 83.0)
	assert.Equal(t, testutil.ToFloat64(m.AltitudeFt), 3000.0)

	m.NoData()
	assert.Equal(t, testutil.ToFloat64(m.Motion), 0.0)
}

func TestCountersByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Cycle("fix")
	m.Cycle("fix")
	m.Cycle("timeout")
	m.Sentence("malformed")
	m.EmptyRead()

	assert.Equal(t, testutil.ToFloat64(m.Cycles.WithLabelValues("fix")), 2.0)
	assert.Equal(t, testutil.ToFloat64(m.Cycles.WithLabelValues("timeout")), 1.0)
	assert.Equal(t, testutil.ToFloat64(m.Sentences.WithLabelValues("malformed")), 1.0)
	assert.Equal(t, testutil.ToFloat64(m.EmptyReads), 1.0)

	n, err := testutil.GatherAndCount(reg)
	assert.NilError(t, err)
	assert.Equal(t, n, 7)
}
