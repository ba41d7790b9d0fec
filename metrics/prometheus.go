// Package metrics exports recall-run metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector records ingest, search and recall metrics.
// It satisfies vecrecall.MetricsCollector.
type PrometheusCollector struct {
	updates       *prometheus.CounterVec
	updateLatency prometheus.Histogram
	batches       *prometheus.CounterVec
	batchItems    prometheus.Counter
	batchLatency  prometheus.Histogram
	searches      *prometheus.CounterVec
	searchLatency *prometheus.HistogramVec
	recall        prometheus.Histogram
	lastRecall    prometheus.Gauge
}

// Option configures a PrometheusCollector.
type Option func(*config)

type config struct {
	namespace   string
	constLabels prometheus.Labels
}

// WithNamespace sets the metric namespace (default "vecrecall").
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithConstLabels attaches constant labels, e.g. the run id, to every metric.
func WithConstLabels(l prometheus.Labels) Option {
	return func(c *config) { c.constLabels = l }
}

// NewPrometheusCollector creates the collector and registers it with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, opts ...Option) (*PrometheusCollector, error) {
	cfg := config{namespace: "vecrecall"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &PrometheusCollector{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Name:        "tracker_updates_total",
			Help:        "Vectors offered to the ground-truth tracker",
			ConstLabels: cfg.constLabels,
		}, []string{"status"}),
		updateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "tracker_update_duration_seconds",
			Help:        "Time spent updating the tracker per ingest batch",
			ConstLabels: cfg.constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Name:        "ingest_batches_total",
			Help:        "Batches forwarded to the system under test",
			ConstLabels: cfg.constLabels,
		}, []string{"status"}),
		batchItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Name:        "ingest_vectors_total",
			Help:        "Vectors forwarded to the system under test",
			ConstLabels: cfg.constLabels,
		}),
		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "ingest_batch_duration_seconds",
			Help:        "Latency of ingest batches against the system under test",
			ConstLabels: cfg.constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Name:        "searches_total",
			Help:        "Trial searches issued",
			ConstLabels: cfg.constLabels,
		}, []string{"status"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "search_duration_seconds",
			Help:        "Latency of trial searches",
			ConstLabels: cfg.constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"status"}),
		recall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "recall",
			Help:        "Recall@k of individual trials",
			ConstLabels: cfg.constLabels,
			Buckets:     prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		lastRecall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.namespace,
			Name:        "recall_last",
			Help:        "Recall@k of the most recent trial",
			ConstLabels: cfg.constLabels,
		}),
	}

	for _, c := range []prometheus.Collector{
		p.updates, p.updateLatency,
		p.batches, p.batchItems, p.batchLatency,
		p.searches, p.searchLatency,
		p.recall, p.lastRecall,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordUpdate records count tracker updates that took duration in total.
func (p *PrometheusCollector) RecordUpdate(count int, duration time.Duration, err error) {
	p.updates.WithLabelValues(status(err)).Add(float64(count))
	p.updateLatency.Observe(duration.Seconds())
}

// RecordBatch records one ingest batch.
func (p *PrometheusCollector) RecordBatch(count int, duration time.Duration, err error) {
	p.batches.WithLabelValues(status(err)).Inc()
	if err == nil {
		p.batchItems.Add(float64(count))
	}
	p.batchLatency.Observe(duration.Seconds())
}

// RecordSearch records one trial search.
func (p *PrometheusCollector) RecordSearch(_ int, duration time.Duration, err error) {
	s := status(err)
	p.searches.WithLabelValues(s).Inc()
	p.searchLatency.WithLabelValues(s).Observe(duration.Seconds())
}

// RecordRecall records the recall of one successful trial.
func (p *PrometheusCollector) RecordRecall(value float64) {
	p.recall.Observe(value)
	p.lastRecall.Set(value)
}

// UpdatesCounter exposes the tracker update counter for the given status label.
func (p *PrometheusCollector) UpdatesCounter(status string) prometheus.Counter {
	return p.updates.WithLabelValues(status)
}

// SearchLatency exposes the search latency histogram vector.
func (p *PrometheusCollector) SearchLatency() prometheus.Collector {
	return p.searchLatency
}
