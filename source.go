package vecrecall

import (
	"context"
	"io"
	"math/rand"
	"strconv"

	"github.com/hupe1980/vecrecall/groundtruth"
)

// Item is one identified vector of the stream.
type Item = groundtruth.Item

// Source yields the vector stream. Next returns io.EOF after the last item.
// Returned vectors must stay valid after subsequent calls to Next.
type Source interface {
	Next(ctx context.Context) (Item, error)
}

// SliceSource streams a fixed slice of items.
type SliceSource struct {
	items []Item
	pos   int
}

// NewSliceSource creates a source over items. The slice is not copied.
func NewSliceSource(items []Item) *SliceSource {
	return &SliceSource{items: items}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	if s.pos >= len(s.items) {
		return Item{}, io.EOF
	}
	it := s.items[s.pos]
	s.pos++
	return it, nil
}

// RandomSource generates vectors uniformly distributed in [-1, 1) with ids
// "0", "1", ... in stream order. It is deterministic for a given seed.
type RandomSource struct {
	rng   *rand.Rand
	dim   int
	limit uint64
	next  uint64
}

// NewRandomSource creates a seeded source of dim-dimensional vectors.
// limit bounds the stream length; zero means unbounded.
func NewRandomSource(dim int, seed int64, limit uint64) *RandomSource {
	return &RandomSource{
		rng:   rand.New(rand.NewSource(seed)),
		dim:   dim,
		limit: limit,
	}
}

// Next implements Source.
func (s *RandomSource) Next(ctx context.Context) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	if s.limit > 0 && s.next >= s.limit {
		return Item{}, io.EOF
	}

	id := strconv.FormatUint(s.next, 10)
	s.next++
	return Item{ID: id, Vector: s.vector()}, nil
}

// Vectors drains the remaining stream into a slice. Useful for generating
// query vectors. Panics on an unbounded source.
func (s *RandomSource) Vectors() [][]float32 {
	if s.limit == 0 {
		panic("vecrecall: Vectors on unbounded RandomSource")
	}
	out := make([][]float32, 0, s.limit-s.next)
	for s.next < s.limit {
		out = append(out, s.vector())
		s.next++
	}
	return out
}

func (s *RandomSource) vector() []float32 {
	v := make([]float32, s.dim)
	for i := range v {
		v[i] = s.rng.Float32()*2 - 1
	}
	return v
}
