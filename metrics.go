package vecrecall

import (
	"math"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting run metrics.
// metrics.PrometheusCollector is the Prometheus implementation.
type MetricsCollector interface {
	// RecordUpdate is called after the tracker absorbed count vectors.
	RecordUpdate(count int, duration time.Duration, err error)

	// RecordBatch is called after each batch forwarded to the Ingester.
	RecordBatch(count int, duration time.Duration, err error)

	// RecordSearch is called after each trial search.
	// k is the number of neighbors requested, err is nil if successful.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordRecall is called with the recall of each successful trial.
	RecordRecall(value float64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordBatch(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRecall(float64)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	UpdateTotalNanos atomic.Int64
	BatchCount       atomic.Int64
	BatchItems       atomic.Int64
	BatchErrors      atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	RecallCount      atomic.Int64
	recallSumBits    atomic.Uint64
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(count int, duration time.Duration, err error) {
	if err != nil {
		b.UpdateErrors.Add(1)
		return
	}
	b.UpdateCount.Add(int64(count))
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(count int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	if err != nil {
		b.BatchErrors.Add(1)
		return
	}
	b.BatchItems.Add(int64(count))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordRecall implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecall(value float64) {
	b.RecallCount.Add(1)
	for {
		old := b.recallSumBits.Load()
		sum := math.Float64frombits(old) + value
		if b.recallSumBits.CompareAndSwap(old, math.Float64bits(sum)) {
			return
		}
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpdateCount:    b.UpdateCount.Load(),
		UpdateErrors:   b.UpdateErrors.Load(),
		BatchCount:     b.BatchCount.Load(),
		BatchItems:     b.BatchItems.Load(),
		BatchErrors:    b.BatchErrors.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.getAvgSearchNanos(),
		RecallCount:    b.RecallCount.Load(),
		RecallMean:     b.getRecallMean(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getRecallMean() float64 {
	count := b.RecallCount.Load()
	if count == 0 {
		return 0
	}
	return math.Float64frombits(b.recallSumBits.Load()) / float64(count)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpdateCount    int64
	UpdateErrors   int64
	BatchCount     int64
	BatchItems     int64
	BatchErrors    int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	RecallCount    int64
	RecallMean     float64
}
