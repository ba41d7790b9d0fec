package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/vecrecall"
	"github.com/hupe1980/vecrecall/metrics"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ vecrecall.MetricsCollector = (*metrics.PrometheusCollector)(nil)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := metrics.NewPrometheusCollector(reg, metrics.WithConstLabels(prometheus.Labels{"run": "r1"}))
	require.NoError(t, err)

	p.RecordUpdate(100, 2*time.Millisecond, nil)
	p.RecordBatch(100, 10*time.Millisecond, nil)
	p.RecordBatch(50, 10*time.Millisecond, errors.New("bulk rejected"))
	p.RecordSearch(10, time.Millisecond, nil)
	p.RecordSearch(10, time.Millisecond, errors.New("timeout"))
	p.RecordRecall(0.9)
	p.RecordRecall(0.7)

	assert.Equal(t, 100.0, promtest.ToFloat64(p.UpdatesCounter("ok")))

	batches := gather(t, reg, "vecrecall_ingest_batches_total")
	assert.Len(t, batches.GetMetric(), 2)

	vectors := gather(t, reg, "vecrecall_ingest_vectors_total")
	assert.Equal(t, 100.0, vectors.GetMetric()[0].GetCounter().GetValue())

	recall := gather(t, reg, "vecrecall_recall")
	h := recall.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 1.6, h.GetSampleSum(), 1e-9)

	last := gather(t, reg, "vecrecall_recall_last")
	assert.InDelta(t, 0.7, last.GetMetric()[0].GetGauge().GetValue(), 1e-9)

	labels := last.GetMetric()[0].GetLabel()
	require.Len(t, labels, 1)
	assert.Equal(t, "run", labels[0].GetName())
	assert.Equal(t, "r1", labels[0].GetValue())

	assert.Equal(t, 2, promtest.CollectAndCount(p.SearchLatency()))
}

func TestPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewPrometheusCollector(reg)
	require.NoError(t, err)

	_, err = metrics.NewPrometheusCollector(reg)
	var already prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &already)

	_, err = metrics.NewPrometheusCollector(reg, metrics.WithNamespace("other"))
	require.NoError(t, err)
}
