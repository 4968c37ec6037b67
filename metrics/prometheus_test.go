package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func metricValue(t *testing.T, reg *prometheus.Registry, fqName string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != fqName {
			continue
		}
		require.NotEmpty(t, mf.Metric)
		m := mf.Metric[0]
		switch {
		case m.Counter != nil:
			return m.Counter.GetValue()
		case m.Gauge != nil:
			return m.Gauge.GetValue()
		}
	}
	t.Fatalf("metric %s not found", fqName)
	return 0
}

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, fqName string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != fqName {
			continue
		}
		require.NotEmpty(t, mf.Metric)
		return mf.Metric[0].GetHistogram().GetSampleCount()
	}
	t.Fatalf("metric %s not found", fqName)
	return 0
}

func TestPrometheusProvider_CounterAccumulates(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg, "asyncproc_test")

	c := p.Counter("events_total")
	c.Add(3)
	c.Add(2)

	require.Equal(t, float64(5), metricValue(t, reg, "asyncproc_test_events_total"))
}

func TestPrometheusProvider_UpDownCounterMovesBothWays(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg, "asyncproc_test")

	u := p.UpDownCounter("inflight")
	u.Add(5)
	u.Add(-2)

	require.Equal(t, float64(3), metricValue(t, reg, "asyncproc_test_inflight"))
}

func TestPrometheusProvider_SameNameReusesCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg, "asyncproc_test")

	p.Counter("a").Add(1)
	p.Counter("a").Add(1)

	require.Equal(t, float64(2), metricValue(t, reg, "asyncproc_test_a"))
	require.Len(t, p.counters, 1)
}

func TestPrometheusProvider_HistogramRecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg, "asyncproc_test")

	h := p.Histogram("latency_seconds")
	h.Record(0.1)
	h.Record(0.2)

	require.Equal(t, uint64(2), histogramSampleCount(t, reg, "asyncproc_test_latency_seconds"))
}
