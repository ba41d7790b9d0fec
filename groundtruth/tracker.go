package groundtruth

import (
	"log/slog"
	"slices"
	"unsafe"

	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/internal/queue"
)

// Item is one ingested corpus vector.
type Item struct {
	ID     string
	Vector []float32
}

// Neighbor is a ground-truth candidate of one query.
type Neighbor struct {
	ID       string
	Distance float64
}

// Tracker maintains the exact k nearest ingested vectors for each query.
type Tracker struct {
	queries  [][]float32
	k        int
	dim      int
	metric   distance.Metric
	distFn   distance.Func
	tieBreak TieBreak
	sets     []*queue.Bounded
	seen     uint64
	logger   *slog.Logger
}

// New creates a tracker for the given query vectors.
// The query vectors are copied; the caller may reuse the slices.
func New(queries [][]float32, k int, metric distance.Metric, opts ...Option) (*Tracker, error) {
	o := applyOptions(opts)

	t, err := newTracker(queries, k, metric, o)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("ground truth tracker created",
		"queries", len(t.queries),
		"k", t.k,
		"dimension", t.dim,
		"metric", t.metric,
		"tie_break", t.tieBreak,
		"memory_estimate_bytes", t.MemoryEstimate(),
	)
	return t, nil
}

func newTracker(queries [][]float32, k int, metric distance.Metric, o options) (*Tracker, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	distFn, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dim := len(queries[0])
	if dim == 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}

	// Single backing array for all query vectors.
	data := make([]float32, len(queries)*dim)
	qs := make([][]float32, len(queries))
	for i, q := range queries {
		if len(q) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(q)}
		}
		v := data[i*dim : (i+1)*dim : (i+1)*dim]
		copy(v, q)
		qs[i] = v
	}

	sets := make([]*queue.Bounded, len(qs))
	for i := range sets {
		sets[i] = queue.NewBounded(k, o.tieBreak.order())
	}

	return &Tracker{
		queries:  qs,
		k:        k,
		dim:      dim,
		metric:   metric,
		distFn:   distFn,
		tieBreak: o.tieBreak,
		sets:     sets,
		logger:   o.logger,
	}, nil
}

// Update offers one ingested vector to every query's neighbor set.
// The vector is only read, never retained.
// Identifier uniqueness is the caller's responsibility.
func (t *Tracker) Update(id string, vector []float32) error {
	if len(vector) != t.dim {
		return &ErrDimensionMismatch{Expected: t.dim, Actual: len(vector)}
	}

	seq := t.seen
	for i, q := range t.queries {
		t.sets[i].Offer(queue.Item{
			ID:       id,
			Distance: t.distFn(q, vector),
			Seq:      seq,
		})
	}
	t.seen++

	return nil
}

// UpdateBatch calls Update for each item in order and stops at the first failure.
// Items before the failing one remain applied.
func (t *Tracker) UpdateBatch(items []Item) error {
	for i, it := range items {
		if err := t.Update(it.ID, it.Vector); err != nil {
			return &BatchError{Position: i, ID: it.ID, Err: err}
		}
	}
	return nil
}

// GroundTruth returns the identifiers of the current nearest neighbors of query i,
// nearest first. Fewer than k identifiers are returned while fewer than k vectors
// have been seen.
func (t *Tracker) GroundTruth(i int) ([]string, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}

	items := t.sets[i].Sorted()
	ids := make([]string, len(items))
	for j, it := range items {
		ids[j] = it.ID
	}
	return ids, nil
}

// Neighbors returns the current nearest neighbors of query i with their distances,
// nearest first.
func (t *Tracker) Neighbors(i int) ([]Neighbor, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}

	items := t.sets[i].Sorted()
	out := make([]Neighbor, len(items))
	for j, it := range items {
		out[j] = Neighbor{ID: it.ID, Distance: it.Distance}
	}
	return out, nil
}

// QueryVector returns a copy of query vector i.
func (t *Tracker) QueryVector(i int) ([]float32, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}
	return slices.Clone(t.queries[i]), nil
}

// K returns the number of neighbors tracked per query.
func (t *Tracker) K() int { return t.k }

// Dimension returns the vector dimension.
func (t *Tracker) Dimension() int { return t.dim }

// Metric returns the distance metric.
func (t *Tracker) Metric() distance.Metric { return t.metric }

// NumQueries returns the number of tracked queries.
func (t *Tracker) NumQueries() int { return len(t.queries) }

// Seen returns the number of vectors ingested so far.
func (t *Tracker) Seen() uint64 { return t.seen }

// TieBreak returns the tie-break policy.
func (t *Tracker) TieBreak() TieBreak { return t.tieBreak }

// MemoryEstimate returns the resident size of the query vectors plus the
// neighbor sets at full capacity. Identifier bytes are not included.
func (t *Tracker) MemoryEstimate() int64 {
	return EstimateMemory(len(t.queries), t.dim, t.k)
}

// EstimateMemory returns the MemoryEstimate of a tracker with the given shape
// without building it.
func EstimateMemory(numQueries, dim, k int) int64 {
	queryBytes := int64(numQueries) * int64(dim) * int64(unsafe.Sizeof(float32(0)))
	heapBytes := int64(numQueries) * int64(k) * int64(unsafe.Sizeof(queue.Item{}))
	return queryBytes + heapBytes
}

func (t *Tracker) checkIndex(i int) error {
	if i < 0 || i >= len(t.queries) {
		return &ErrIndexOutOfRange{Index: i, Len: len(t.queries)}
	}
	return nil
}
