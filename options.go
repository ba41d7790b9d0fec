package vecrecall

import (
	"context"
	"log/slog"

	"github.com/hupe1980/vecrecall/checkpoint"
	"github.com/hupe1980/vecrecall/codec"
	"github.com/hupe1980/vecrecall/groundtruth"
)

// DefaultBatchSize is the number of vectors forwarded per Ingest call.
const DefaultBatchSize = 1000

// Checkpointer persists tracker state. *checkpoint.Manager implements it.
type Checkpointer interface {
	Save(ctx context.Context, t *groundtruth.Tracker) (*checkpoint.Manifest, error)
}

type options struct {
	batchSize         int
	ingestRate        float64
	checkpointEvery   uint64
	checkpointer      Checkpointer
	searcher          Searcher
	searchConcurrency int
	trials            int
	memoryLimit       int64
	codec             codec.Codec
	metricsCollector  MetricsCollector
	logger            *Logger
}

// Option configures a Runner.
type Option func(*options)

// WithBatchSize sets how many vectors are forwarded to the Ingester at once.
// Default: 1000.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithIngestRate caps ingestion at vectorsPerSec. Zero means unlimited.
func WithIngestRate(vectorsPerSec float64) Option {
	return func(o *options) {
		o.ingestRate = vectorsPerSec
	}
}

// WithCheckpointEvery runs an intermediate checkpoint each time another n
// vectors have been ingested: flush (when the Ingester is a Flusher),
// evaluate (when a Searcher is set) and save (when a Checkpointer is set).
// Zero disables checkpoints.
func WithCheckpointEvery(n uint64) Option {
	return func(o *options) {
		o.checkpointEvery = n
	}
}

// WithCheckpointer persists the tracker at every checkpoint.
func WithCheckpointer(c Checkpointer) Option {
	return func(o *options) {
		o.checkpointer = c
	}
}

// WithSearcher sets the system under test used by Evaluate.
func WithSearcher(s Searcher) Option {
	return func(o *options) {
		o.searcher = s
	}
}

// WithSearchConcurrency bounds the number of in-flight trial searches.
// Default: 1.
func WithSearchConcurrency(n int) Option {
	return func(o *options) {
		o.searchConcurrency = n
	}
}

// WithTrials sets how many queries Evaluate searches. Values above the
// number of tracked queries are clamped with a warning. Default: all queries.
func WithTrials(n int) Option {
	return func(o *options) {
		o.trials = n
	}
}

// WithMemoryLimit rejects trackers whose estimated state exceeds bytes.
// Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithCodec configures the codec used by Report.Encode callers that pass nil.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring the run.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecrecall.BasicMetricsCollector{}
//	runner, _ := vecrecall.NewRunner(tracker, vecrecall.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, mean recall: %.3f\n", stats.SearchCount, stats.RecallMean)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for the run.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vecrecall.NewJSONLogger(slog.LevelInfo)
//	runner, _ := vecrecall.NewRunner(tracker, vecrecall.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		batchSize:         DefaultBatchSize,
		searchConcurrency: 1,
		codec:             codec.Default,
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
