package vecrecall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecrecall/codec"
	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/groundtruth"
	"github.com/hupe1980/vecrecall/recall"
	"github.com/hupe1980/vecrecall/resource"
)

// Ingester forwards vectors to the system under test.
// It must not retain batch after returning.
type Ingester interface {
	Ingest(ctx context.Context, batch []Item) error
}

// Flusher is optionally implemented by an Ingester that needs an explicit
// step (refresh, force-merge, commit) before newly ingested vectors are searchable.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Searcher runs an approximate k-NN query against the system under test.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]string, error)
}

// IngestStats summarizes one Ingest call.
type IngestStats struct {
	Vectors     uint64        `json:"vectors"`
	Batches     int           `json:"batches"`
	Checkpoints int           `json:"checkpoints"`
	Duration    time.Duration `json:"duration"`
}

// CheckpointResult is the outcome of one intermediate checkpoint.
type CheckpointResult struct {
	Ingested   uint64          `json:"ingested"`
	Summary    *recall.Summary `json:"summary,omitempty"`
	Failed     int             `json:"failed,omitempty"`
	SnapshotID uint64          `json:"snapshot_id,omitempty"`
}

// Report is the outcome of an evaluation.
type Report struct {
	RunID       string             `json:"run_id"`
	Metric      distance.Metric    `json:"metric"`
	K           int                `json:"k"`
	Seen        uint64             `json:"seen"`
	Trials      int                `json:"trials"`
	Failed      int                `json:"failed"`
	Samples     []float64          `json:"samples"`
	Summary     recall.Summary     `json:"summary"`
	Checkpoints []CheckpointResult `json:"checkpoints,omitempty"`
}

// Encode serializes the report. A nil codec uses codec.Default.
func (r Report) Encode(c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	return c.Marshal(r)
}

// Runner drives a recall run: it streams vectors into the tracker and the
// system under test, runs intermediate checkpoints and evaluates recall.
// A Runner is not safe for concurrent use.
type Runner struct {
	tracker  *groundtruth.Tracker
	opts     options
	ctrl     *resource.Controller
	logger   *Logger
	runID    string
	reserved int64

	checkpoints []CheckpointResult
	closed      bool
}

// NewRunner creates a Runner around tracker. The tracker's estimated memory
// is reserved against WithMemoryLimit until Close.
func NewRunner(tracker *groundtruth.Tracker, optFns ...Option) (*Runner, error) {
	if tracker == nil {
		return nil, ErrNilTracker
	}

	o := applyOptions(optFns)
	if o.batchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, o.batchSize)
	}

	ctrl := resource.NewController(resource.Config{
		MemoryLimitBytes:      o.memoryLimit,
		MaxConcurrentSearches: int64(max(1, o.searchConcurrency)),
		IngestVectorsPerSec:   o.ingestRate,
		IngestBurst:           o.batchSize,
	})

	reserved := tracker.MemoryEstimate()
	if err := ctrl.ReserveMemory(reserved); err != nil {
		return nil, fmt.Errorf("vecrecall: tracker state: %w", err)
	}

	runID := uuid.NewString()
	r := &Runner{
		tracker:  tracker,
		opts:     o,
		ctrl:     ctrl,
		logger:   o.logger.WithRunID(runID).WithK(tracker.K()),
		runID:    runID,
		reserved: reserved,
	}

	r.logger.Info("runner created",
		"queries", tracker.NumQueries(),
		"dimension", tracker.Dimension(),
		"metric", tracker.Metric().String(),
		"memory_estimate", reserved,
	)
	return r, nil
}

// Tracker returns the ground-truth tracker.
func (r *Runner) Tracker() *groundtruth.Tracker { return r.tracker }

// RunID returns the unique id of this run.
func (r *Runner) RunID() string { return r.runID }

// EncodeReport serializes rep with the codec configured by WithCodec.
func (r *Runner) EncodeReport(rep Report) ([]byte, error) {
	return rep.Encode(r.opts.codec)
}

// Checkpoints returns the results of all checkpoints so far.
func (r *Runner) Checkpoints() []CheckpointResult {
	return append([]CheckpointResult(nil), r.checkpoints...)
}

// Ingest pulls src to exhaustion. Every batch is forwarded to ingester (which
// may be nil to only track ground truth) and then absorbed by the tracker, so
// the tracker never holds vectors the system under test rejected.
func (r *Runner) Ingest(ctx context.Context, src Source, ingester Ingester) (IngestStats, error) {
	if r.closed {
		return IngestStats{}, ErrClosed
	}

	var stats IngestStats
	start := time.Now()

	batch := make([]Item, 0, r.opts.batchSize)
	for {
		item, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("vecrecall: read source: %w", err)
		}

		batch = append(batch, item)
		if len(batch) < r.opts.batchSize {
			continue
		}
		if err := r.processBatch(ctx, batch, ingester, &stats); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		batch = batch[:0]
	}

	if len(batch) > 0 {
		if err := r.processBatch(ctx, batch, ingester, &stats); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	r.logger.InfoContext(ctx, "ingest completed",
		"vectors", stats.Vectors,
		"batches", stats.Batches,
		"checkpoints", stats.Checkpoints,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (r *Runner) processBatch(ctx context.Context, batch []Item, ingester Ingester, stats *IngestStats) error {
	offset := r.tracker.Seen()
	fail := func(stage string, err error) error {
		return &IngestError{Offset: offset, Size: len(batch), Stage: stage, cause: err}
	}

	if err := r.ctrl.AcquireIngest(ctx, len(batch)); err != nil {
		return fail(StageIngest, err)
	}

	if ingester != nil {
		start := time.Now()
		err := ingester.Ingest(ctx, batch)
		r.opts.metricsCollector.RecordBatch(len(batch), time.Since(start), err)
		r.logger.LogIngestBatch(ctx, offset, len(batch), err)
		if err != nil {
			return fail(StageIngest, err)
		}
	}

	start := time.Now()
	err := r.tracker.UpdateBatch(batch)
	r.opts.metricsCollector.RecordUpdate(len(batch), time.Since(start), err)
	if err != nil {
		return fail(StageTrack, err)
	}

	before := stats.Vectors
	stats.Vectors += uint64(len(batch))
	stats.Batches++

	every := r.opts.checkpointEvery
	if every == 0 || before/every == stats.Vectors/every {
		return nil
	}

	if err := r.checkpoint(ctx, ingester); err != nil {
		return fail(stageOf(err), err)
	}
	stats.Checkpoints++
	return nil
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return StageCheckpoint
}

// Checkpoint runs an intermediate checkpoint immediately.
func (r *Runner) Checkpoint(ctx context.Context, ingester Ingester) (CheckpointResult, error) {
	if r.closed {
		return CheckpointResult{}, ErrClosed
	}
	if err := r.checkpoint(ctx, ingester); err != nil {
		return CheckpointResult{}, err
	}
	return r.checkpoints[len(r.checkpoints)-1], nil
}

func (r *Runner) checkpoint(ctx context.Context, ingester Ingester) error {
	cp := CheckpointResult{Ingested: r.tracker.Seen()}

	if f, ok := ingester.(Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			r.logger.LogCheckpoint(ctx, cp, err)
			return &stageError{stage: StageFlush, err: err}
		}
	}

	if r.opts.searcher != nil {
		rep, err := r.Evaluate(ctx)
		if err != nil {
			r.logger.LogCheckpoint(ctx, cp, err)
			return &stageError{stage: StageEvaluate, err: err}
		}
		cp.Summary = &rep.Summary
		cp.Failed = rep.Failed
	}

	if r.opts.checkpointer != nil {
		man, err := r.opts.checkpointer.Save(ctx, r.tracker)
		if err != nil {
			r.logger.LogCheckpoint(ctx, cp, err)
			return &stageError{stage: StageCheckpoint, err: err}
		}
		cp.SnapshotID = man.ID
	}

	r.checkpoints = append(r.checkpoints, cp)
	r.logger.LogCheckpoint(ctx, cp, nil)
	return nil
}

// Evaluate searches min(trials, Q) query vectors with k and scores each
// result against the tracked ground truth. Failed searches are counted in
// Report.Failed and skipped; if every search fails the error wraps
// recall.ErrEmptySampleSet.
func (r *Runner) Evaluate(ctx context.Context) (Report, error) {
	if r.closed {
		return Report{}, ErrClosed
	}
	if r.opts.searcher == nil {
		return Report{}, ErrNoSearcher
	}

	k := r.tracker.K()
	numQueries := r.tracker.NumQueries()
	trials := r.opts.trials
	if trials <= 0 {
		trials = numQueries
	}
	if trials > numQueries {
		r.logger.WarnContext(ctx, "limiting trials to the number of tracked queries",
			"requested", trials,
			"queries", numQueries,
		)
		trials = numQueries
	}

	// Snapshot inputs up front; the tracker is not safe for concurrent use.
	queries := make([][]float32, trials)
	truths := make([][]string, trials)
	for i := range trials {
		q, err := r.tracker.QueryVector(i)
		if err != nil {
			return Report{}, err
		}
		gt, err := r.tracker.GroundTruth(i)
		if err != nil {
			return Report{}, err
		}
		queries[i], truths[i] = q, gt
	}

	values := make([]float64, trials)
	ok := make([]bool, trials)

	g, gctx := errgroup.WithContext(ctx)
	for i := range trials {
		if err := r.ctrl.AcquireSearch(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer r.ctrl.ReleaseSearch()

			start := time.Now()
			ids, err := r.opts.searcher.Search(gctx, queries[i], k)
			r.opts.metricsCollector.RecordSearch(k, time.Since(start), err)
			if err != nil {
				r.logger.LogTrial(gctx, i, 0, err)
				return nil
			}

			v := recall.AtK(ids, truths[i])
			values[i], ok[i] = v, true
			r.opts.metricsCollector.RecordRecall(v)
			r.logger.LogTrial(gctx, i, v, nil)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	rep := Report{
		RunID:       r.runID,
		Metric:      r.tracker.Metric(),
		K:           k,
		Seen:        r.tracker.Seen(),
		Trials:      trials,
		Samples:     make([]float64, 0, trials),
		Checkpoints: r.Checkpoints(),
	}
	for i, v := range values {
		if ok[i] {
			rep.Samples = append(rep.Samples, v)
		} else {
			rep.Failed++
		}
	}

	summary, err := recall.Summarize(rep.Samples)
	if err != nil {
		return rep, fmt.Errorf("vecrecall: all %d trials failed: %w", trials, err)
	}
	rep.Summary = summary

	r.logger.LogSummary(ctx, rep.Trials, rep.Failed, summary)
	return rep, nil
}
