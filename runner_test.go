package vecrecall_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/vecrecall"
	"github.com/hupe1980/vecrecall/blobstore"
	"github.com/hupe1980/vecrecall/checkpoint"
	"github.com/hupe1980/vecrecall/codec"
	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/groundtruth"
	"github.com/hupe1980/vecrecall/recall"
	"github.com/hupe1980/vecrecall/resource"
	"github.com/hupe1980/vecrecall/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exactIndex is an in-memory system under test that answers with exact
// nearest neighbors over everything ingested so far.
type exactIndex struct {
	mu      sync.Mutex
	metric  distance.Metric
	items   []groundtruth.Item
	flushes int
	limit   int // truncates results when > 0
}

func (x *exactIndex) Ingest(_ context.Context, batch []vecrecall.Item) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range batch {
		x.items = append(x.items, groundtruth.Item{ID: it.ID, Vector: append([]float32(nil), it.Vector...)})
	}
	return nil
}

func (x *exactIndex) Flush(context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.flushes++
	return nil
}

func (x *exactIndex) Search(_ context.Context, query []float32, k int) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.limit > 0 && k > x.limit {
		k = x.limit
	}
	return testutil.IDs(testutil.BruteForceSearch(x.items, query, k, x.metric)), nil
}

type failingSearcher struct {
	fail func(query []float32) bool
	next vecrecall.Searcher
}

func (f failingSearcher) Search(ctx context.Context, query []float32, k int) ([]string, error) {
	if f.fail(query) {
		return nil, errors.New("backend unavailable")
	}
	return f.next.Search(ctx, query, k)
}

type rejectingIngester struct {
	after int
	seen  int
}

func (r *rejectingIngester) Ingest(_ context.Context, batch []vecrecall.Item) error {
	if r.seen+len(batch) > r.after {
		return errors.New("index full")
	}
	r.seen += len(batch)
	return nil
}

func newTracker(t *testing.T, numQueries, dim, k int) *groundtruth.Tracker {
	t.Helper()

	rng := testutil.NewRNG(7)
	tr, err := groundtruth.New(rng.UniformRangeVectors(numQueries, dim), k, distance.MetricL2)
	require.NoError(t, err)
	return tr
}

func TestNewRunner_Validation(t *testing.T) {
	t.Run("NilTracker", func(t *testing.T) {
		_, err := vecrecall.NewRunner(nil)
		assert.ErrorIs(t, err, vecrecall.ErrNilTracker)
	})

	t.Run("InvalidBatchSize", func(t *testing.T) {
		_, err := vecrecall.NewRunner(newTracker(t, 2, 4, 3), vecrecall.WithBatchSize(0))
		assert.ErrorIs(t, err, vecrecall.ErrInvalidBatchSize)
	})

	t.Run("MemoryLimit", func(t *testing.T) {
		_, err := vecrecall.NewRunner(newTracker(t, 10, 16, 10), vecrecall.WithMemoryLimit(64))
		assert.ErrorIs(t, err, resource.ErrMemoryBudgetExceeded)
	})

	t.Run("MemoryLimitFits", func(t *testing.T) {
		tr := newTracker(t, 10, 16, 10)
		r, err := vecrecall.NewRunner(tr, vecrecall.WithMemoryLimit(2*tr.MemoryEstimate()))
		require.NoError(t, err)
		assert.NotEmpty(t, r.RunID())
		assert.Same(t, tr, r.Tracker())
	})
}

func TestRunner_ExactSearcherHasPerfectRecall(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, 20, 8, 5)
	idx := &exactIndex{metric: distance.MetricL2}

	mc := &vecrecall.BasicMetricsCollector{}
	r, err := vecrecall.NewRunner(tr,
		vecrecall.WithBatchSize(64),
		vecrecall.WithSearcher(idx),
		vecrecall.WithSearchConcurrency(4),
		vecrecall.WithMetricsCollector(mc),
	)
	require.NoError(t, err)
	defer r.Close()

	stats, err := r.Ingest(ctx, vecrecall.NewRandomSource(8, 42, 500), idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), stats.Vectors)
	assert.Equal(t, 8, stats.Batches)
	assert.Zero(t, stats.Checkpoints)
	assert.Equal(t, uint64(500), tr.Seen())

	rep, err := r.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, rep.Trials)
	assert.Zero(t, rep.Failed)
	assert.Len(t, rep.Samples, 20)
	assert.InDelta(t, 1.0, rep.Summary.Mean, 1e-12)
	assert.InDelta(t, 1.0, rep.Summary.Min, 1e-12)
	assert.InDelta(t, 0.0, rep.Summary.StdDev, 1e-12)
	assert.Equal(t, r.RunID(), rep.RunID)
	assert.Equal(t, uint64(500), rep.Seen)

	st := mc.GetStats()
	assert.Equal(t, int64(500), st.UpdateCount)
	assert.Equal(t, int64(8), st.BatchCount)
	assert.Equal(t, int64(500), st.BatchItems)
	assert.Equal(t, int64(20), st.SearchCount)
	assert.Equal(t, int64(20), st.RecallCount)
	assert.InDelta(t, 1.0, st.RecallMean, 1e-12)
}

func TestRunner_PartialRecall(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, 5, 4, 4)
	idx := &exactIndex{metric: distance.MetricL2, limit: 2}

	r, err := vecrecall.NewRunner(tr, vecrecall.WithSearcher(idx))
	require.NoError(t, err)

	_, err = r.Ingest(ctx, vecrecall.NewRandomSource(4, 1, 100), idx)
	require.NoError(t, err)

	rep, err := r.Evaluate(ctx)
	require.NoError(t, err)
	for _, s := range rep.Samples {
		assert.InDelta(t, 0.5, s, 1e-12)
	}
}

func TestRunner_IngestWithoutIngester(t *testing.T) {
	tr := newTracker(t, 3, 4, 2)
	r, err := vecrecall.NewRunner(tr, vecrecall.WithBatchSize(7))
	require.NoError(t, err)

	stats, err := r.Ingest(context.Background(), vecrecall.NewRandomSource(4, 3, 50), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), stats.Vectors)
	assert.Equal(t, 8, stats.Batches)
	assert.Equal(t, uint64(50), tr.Seen())
}

func TestRunner_IngestError(t *testing.T) {
	tr := newTracker(t, 3, 4, 2)
	r, err := vecrecall.NewRunner(tr, vecrecall.WithBatchSize(10))
	require.NoError(t, err)

	stats, err := r.Ingest(context.Background(), vecrecall.NewRandomSource(4, 3, 50), &rejectingIngester{after: 25})

	var ie *vecrecall.IngestError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, vecrecall.StageIngest, ie.Stage)
	assert.Equal(t, uint64(20), ie.Offset)
	assert.Equal(t, 10, ie.Size)
	assert.EqualError(t, errors.Unwrap(err), "index full")

	// Rejected vectors never reach the tracker.
	assert.Equal(t, uint64(20), tr.Seen())
	assert.Equal(t, uint64(20), stats.Vectors)
}

func TestRunner_TrackError(t *testing.T) {
	tr := newTracker(t, 3, 4, 2)
	r, err := vecrecall.NewRunner(tr, vecrecall.WithBatchSize(2))
	require.NoError(t, err)

	src := vecrecall.NewSliceSource([]vecrecall.Item{
		{ID: "a", Vector: []float32{1, 2, 3, 4}},
		{ID: "b", Vector: []float32{1, 2, 3}},
	})
	_, err = r.Ingest(context.Background(), src, nil)

	var ie *vecrecall.IngestError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, vecrecall.StageTrack, ie.Stage)

	var dm *groundtruth.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
}

func TestRunner_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSearcher", func(t *testing.T) {
		r, err := vecrecall.NewRunner(newTracker(t, 2, 4, 2))
		require.NoError(t, err)
		_, err = r.Evaluate(ctx)
		assert.ErrorIs(t, err, vecrecall.ErrNoSearcher)
	})

	t.Run("TrialsClamped", func(t *testing.T) {
		idx := &exactIndex{metric: distance.MetricL2}
		r, err := vecrecall.NewRunner(newTracker(t, 4, 4, 2),
			vecrecall.WithSearcher(idx),
			vecrecall.WithTrials(100),
		)
		require.NoError(t, err)
		_, err = r.Ingest(ctx, vecrecall.NewRandomSource(4, 9, 30), idx)
		require.NoError(t, err)

		rep, err := r.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, rep.Trials)
		assert.Len(t, rep.Samples, 4)
	})

	t.Run("TrialsSubset", func(t *testing.T) {
		idx := &exactIndex{metric: distance.MetricL2}
		r, err := vecrecall.NewRunner(newTracker(t, 10, 4, 2),
			vecrecall.WithSearcher(idx),
			vecrecall.WithTrials(3),
		)
		require.NoError(t, err)

		rep, err := r.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, rep.Trials)
		// Nothing ingested yet: empty ground truth scores zero.
		assert.Equal(t, []float64{0, 0, 0}, rep.Samples)
	})

	t.Run("SomeSearchesFail", func(t *testing.T) {
		tr := newTracker(t, 6, 4, 3)
		first, err := tr.QueryVector(0)
		require.NoError(t, err)

		idx := &exactIndex{metric: distance.MetricL2}
		s := failingSearcher{
			fail: func(q []float32) bool { return q[0] == first[0] },
			next: idx,
		}
		mc := &vecrecall.BasicMetricsCollector{}
		r, err := vecrecall.NewRunner(tr, vecrecall.WithSearcher(s), vecrecall.WithMetricsCollector(mc))
		require.NoError(t, err)
		_, err = r.Ingest(ctx, vecrecall.NewRandomSource(4, 5, 40), idx)
		require.NoError(t, err)

		rep, err := r.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, rep.Trials)
		assert.Equal(t, 1, rep.Failed)
		assert.Len(t, rep.Samples, 5)
		assert.Equal(t, 5, rep.Summary.Count)
		assert.Equal(t, int64(1), mc.GetStats().SearchErrors)
	})

	t.Run("AllSearchesFail", func(t *testing.T) {
		s := failingSearcher{fail: func([]float32) bool { return true }}
		r, err := vecrecall.NewRunner(newTracker(t, 3, 4, 2), vecrecall.WithSearcher(s))
		require.NoError(t, err)

		rep, err := r.Evaluate(ctx)
		assert.ErrorIs(t, err, recall.ErrEmptySampleSet)
		assert.Equal(t, 3, rep.Failed)
	})

	t.Run("Canceled", func(t *testing.T) {
		idx := &exactIndex{metric: distance.MetricL2}
		r, err := vecrecall.NewRunner(newTracker(t, 3, 4, 2), vecrecall.WithSearcher(idx))
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = r.Evaluate(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunner_Checkpoints(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, 8, 6, 4)
	idx := &exactIndex{metric: distance.MetricL2}
	store := blobstore.NewMemoryStore()
	mgr := checkpoint.NewManager(store)

	r, err := vecrecall.NewRunner(tr,
		vecrecall.WithBatchSize(10),
		vecrecall.WithCheckpointEvery(25),
		vecrecall.WithCheckpointer(mgr),
		vecrecall.WithSearcher(idx),
	)
	require.NoError(t, err)

	stats, err := r.Ingest(ctx, vecrecall.NewRandomSource(6, 11, 100), idx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Checkpoints)
	assert.Equal(t, 4, idx.flushes)

	cps := r.Checkpoints()
	require.Len(t, cps, 4)
	for i, want := range []uint64{30, 50, 80, 100} {
		assert.Equal(t, want, cps[i].Ingested)
		assert.Equal(t, uint64(i+1), cps[i].SnapshotID)
		require.NotNil(t, cps[i].Summary)
		assert.InDelta(t, 1.0, cps[i].Summary.Mean, 1e-12)
	}

	restored, man, err := mgr.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), man.ID)
	assert.Equal(t, uint64(100), restored.Seen())
	for i := range tr.NumQueries() {
		want, _ := tr.GroundTruth(i)
		got, _ := restored.GroundTruth(i)
		assert.Equal(t, want, got)
	}

	rep, err := r.Evaluate(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Checkpoints, 4)
}

func TestRunner_CheckpointWithoutSearcher(t *testing.T) {
	ctx := context.Background()
	mgr := checkpoint.NewManager(blobstore.NewMemoryStore())

	r, err := vecrecall.NewRunner(newTracker(t, 2, 4, 2),
		vecrecall.WithBatchSize(5),
		vecrecall.WithCheckpointEvery(10),
		vecrecall.WithCheckpointer(mgr),
	)
	require.NoError(t, err)

	_, err = r.Ingest(ctx, vecrecall.NewRandomSource(4, 2, 20), nil)
	require.NoError(t, err)

	cps := r.Checkpoints()
	require.Len(t, cps, 2)
	assert.Nil(t, cps[0].Summary)
	assert.Equal(t, uint64(2), cps[1].SnapshotID)

	cp, err := r.Checkpoint(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cp.SnapshotID)
	assert.Equal(t, uint64(20), cp.Ingested)
}

func TestRunner_Close(t *testing.T) {
	tr := newTracker(t, 2, 4, 2)
	limit := tr.MemoryEstimate()

	r, err := vecrecall.NewRunner(tr, vecrecall.WithMemoryLimit(limit))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Ingest(context.Background(), vecrecall.NewRandomSource(4, 1, 1), nil)
	assert.ErrorIs(t, err, vecrecall.ErrClosed)
	_, err = r.Evaluate(context.Background())
	assert.ErrorIs(t, err, vecrecall.ErrClosed)
}

func TestReport_Encode(t *testing.T) {
	ctx := context.Background()
	idx := &exactIndex{metric: distance.MetricL2}
	r, err := vecrecall.NewRunner(newTracker(t, 2, 4, 2),
		vecrecall.WithSearcher(idx),
		vecrecall.WithCodec(codec.JSON{}),
	)
	require.NoError(t, err)
	_, err = r.Ingest(ctx, vecrecall.NewRandomSource(4, 1, 10), idx)
	require.NoError(t, err)

	rep, err := r.Evaluate(ctx)
	require.NoError(t, err)

	data, err := r.EncodeReport(rep)
	require.NoError(t, err)

	var decoded vecrecall.Report
	require.NoError(t, codec.JSON{}.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Equal(t, distance.MetricL2, decoded.Metric)
	assert.Equal(t, rep.Summary, decoded.Summary)

	data, err = rep.Encode(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id"`)
}
