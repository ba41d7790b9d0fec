package groundtruth

import (
	"fmt"
	"slices"
)

// Merge combines trackers that ingested disjoint shards of one corpus.
//
// All shards must share queries, k, metric and tie-break policy. For each
// query the result keeps the k best candidates across all shards. Under
// TieBreakFirstSeen, equal distances rank by shard position first and by
// per-shard arrival second. The inputs are not modified.
func Merge(shards ...*Tracker) (*Tracker, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: no shards", ErrIncompatible)
	}
	if shards[0] == nil {
		return nil, fmt.Errorf("shard 0: %w: nil tracker", ErrIncompatible)
	}
	base := shards[0]
	for i, s := range shards[1:] {
		if err := base.compatible(s); err != nil {
			return nil, fmt.Errorf("shard %d: %w", i+1, err)
		}
	}

	out, err := newTracker(base.queries, base.k, base.metric, options{
		tieBreak: base.tieBreak,
		logger:   base.logger,
	})
	if err != nil {
		return nil, err
	}

	// Shift each shard's sequence numbers past the previous shards so the
	// arrival order stays total across shards.
	var offset uint64
	for _, s := range shards {
		for qi, set := range s.sets {
			for _, it := range set.Sorted() {
				it.Seq += offset
				out.sets[qi].Offer(it)
			}
		}
		offset += s.seen
	}
	out.seen = offset

	out.logger.Debug("ground truth trackers merged",
		"shards", len(shards),
		"seen", out.seen,
	)
	return out, nil
}

func (t *Tracker) compatible(o *Tracker) error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil tracker", ErrIncompatible)
	case t.k != o.k:
		return fmt.Errorf("%w: k %d != %d", ErrIncompatible, t.k, o.k)
	case t.metric != o.metric:
		return fmt.Errorf("%w: metric %s != %s", ErrIncompatible, t.metric, o.metric)
	case t.tieBreak != o.tieBreak:
		return fmt.Errorf("%w: tie-break %s != %s", ErrIncompatible, t.tieBreak, o.tieBreak)
	case t.dim != o.dim:
		return fmt.Errorf("%w: dimension %d != %d", ErrIncompatible, t.dim, o.dim)
	case len(t.queries) != len(o.queries):
		return fmt.Errorf("%w: %d queries != %d", ErrIncompatible, len(t.queries), len(o.queries))
	}
	for i := range t.queries {
		if !slices.Equal(t.queries[i], o.queries[i]) {
			return fmt.Errorf("%w: query %d differs", ErrIncompatible, i)
		}
	}
	return nil
}
