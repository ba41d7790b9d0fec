// Package queue provides a fixed-capacity max-heap that retains the k best
// candidates seen so far.
package queue

import "sort"

// Item is a scored candidate held by the heap.
type Item struct {
	ID       string  // ID is the opaque identifier of the candidate.
	Distance float64 // Distance is the priority of the item in the queue.
	Seq      uint64  // Seq is the arrival order, used to break distance ties.
}

// Order selects how items with equal distance are ranked.
type Order uint8

const (
	// OrderArrival ranks earlier arrivals first, so an equal-distance newcomer never evicts.
	OrderArrival Order = iota
	// OrderID ranks equal distances by identifier, which is independent of arrival order.
	OrderID
)

// Bounded is a max-heap keyed on (Distance, tie-break) with a capacity limit.
// The root is always the worst retained item.
// Not safe for concurrent use.
type Bounded struct {
	order Order
	cap   int
	items []Item // value-based storage, no pointer indirection
}

// NewBounded creates a heap that holds at most capacity items.
func NewBounded(capacity int, order Order) *Bounded {
	return &Bounded{
		order: order,
		cap:   capacity,
		items: make([]Item, 0, capacity),
	}
}

// Len returns the number of elements in the queue.
func (q *Bounded) Len() int { return len(q.items) }

// Cap returns the capacity limit.
func (q *Bounded) Cap() int { return q.cap }

// Full reports whether the queue holds Cap items.
func (q *Bounded) Full() bool { return len(q.items) >= q.cap }

// Worst returns the root of the heap, i.e. the item that would be evicted next.
func (q *Bounded) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Better reports whether a ranks strictly before b.
func (q *Bounded) Better(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if q.order == OrderID {
		return a.ID < b.ID
	}
	return a.Seq < b.Seq
}

// Offer inserts item if there is room, or replaces the worst item if item ranks
// strictly better. It reports whether item was retained.
func (q *Bounded) Offer(item Item) bool {
	if q.cap <= 0 {
		return false
	}
	if len(q.items) < q.cap {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !q.Better(item, q.items[0]) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Sorted returns a copy of the retained items, best first.
// The heap itself is left untouched.
func (q *Bounded) Sorted() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	sort.Slice(out, func(i, j int) bool { return q.Better(out[i], out[j]) })
	return out
}

// Reset clears the queue for reuse.
func (q *Bounded) Reset() {
	clear(q.items)
	q.items = q.items[:0]
}

// less orders the heap so that the worst item floats to the root.
func (q *Bounded) less(i, j int) bool {
	return q.Better(q.items[j], q.items[i])
}

func (q *Bounded) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Bounded) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
