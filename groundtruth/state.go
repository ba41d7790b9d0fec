package groundtruth

import (
	"fmt"

	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/internal/queue"
)

// State is a self-contained copy of a tracker, used to persist ground truth
// across process restarts.
type State struct {
	Metric    distance.Metric
	K         int
	TieBreak  TieBreak
	Seen      uint64
	Queries   [][]float32
	Neighbors [][]StateEntry // per query, best first
}

// StateEntry is one retained candidate including its arrival sequence number.
type StateEntry struct {
	ID       string
	Distance float64
	Seq      uint64
}

// State returns a deep copy of the tracker state.
func (t *Tracker) State() State {
	s := State{
		Metric:    t.metric,
		K:         t.k,
		TieBreak:  t.tieBreak,
		Seen:      t.seen,
		Queries:   make([][]float32, len(t.queries)),
		Neighbors: make([][]StateEntry, len(t.sets)),
	}
	for i, q := range t.queries {
		s.Queries[i] = append([]float32(nil), q...)
	}
	for i, set := range t.sets {
		items := set.Sorted()
		entries := make([]StateEntry, len(items))
		for j, it := range items {
			entries[j] = StateEntry{ID: it.ID, Distance: it.Distance, Seq: it.Seq}
		}
		s.Neighbors[i] = entries
	}
	return s
}

// Restore rebuilds a tracker from a State. The tie-break policy stored in the
// state wins over WithTieBreak.
func Restore(s State, opts ...Option) (*Tracker, error) {
	o := applyOptions(opts)
	o.tieBreak = s.TieBreak
	if s.TieBreak != TieBreakFirstSeen && s.TieBreak != TieBreakIdentifier {
		return nil, fmt.Errorf("%w: tie-break %d", ErrCorruptState, s.TieBreak)
	}

	t, err := newTracker(s.Queries, s.K, s.Metric, o)
	if err != nil {
		return nil, err
	}
	if len(s.Neighbors) != len(s.Queries) {
		return nil, fmt.Errorf("%w: %d neighbor lists for %d queries", ErrCorruptState, len(s.Neighbors), len(s.Queries))
	}

	for i, entries := range s.Neighbors {
		if len(entries) > s.K {
			return nil, fmt.Errorf("%w: query %d holds %d neighbors, k=%d", ErrCorruptState, i, len(entries), s.K)
		}
		if uint64(len(entries)) > s.Seen {
			return nil, fmt.Errorf("%w: query %d holds %d neighbors, seen=%d", ErrCorruptState, i, len(entries), s.Seen)
		}
		for _, e := range entries {
			if e.Distance < 0 || e.Seq >= s.Seen {
				return nil, fmt.Errorf("%w: query %d entry %q", ErrCorruptState, i, e.ID)
			}
			t.sets[i].Offer(queue.Item{ID: e.ID, Distance: e.Distance, Seq: e.Seq})
		}
	}
	t.seen = s.Seen

	t.logger.Debug("ground truth tracker restored",
		"queries", len(t.queries),
		"k", t.k,
		"seen", t.seen,
	)
	return t, nil
}
