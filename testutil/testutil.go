package testutil

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"sync"

	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/groundtruth"
)

// SearchResult represents an exact search result.
type SearchResult struct {
	ID       string
	Distance float64
}

// RNG wraps a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// UniformRangeVectors generates random vectors with values in range [-1, 1),
// the distribution the ingestion harness uses for corpus and query vectors.
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()*2 - 1
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Sampling from a Gaussian gives a uniform distribution on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}

		if norm == 0 {
			norm = 1 // Avoid division by zero, though unlikely with floats
		}

		scale(vec, float32(1.0/math.Sqrt(norm)))
		vectors[i] = vec
	}

	return vectors
}

// ClusteredVectors generates vectors clustered around random centroids.
// Clusters produce many near-equal distances, which exercises tie handling.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	// UnitVectors takes the lock itself.
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]

		for j := range dim {
			// Add Gaussian noise to centroid
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}

	return vectors
}

// Items pairs vectors with sequential identifiers "0", "1", ... as used by
// the ingestion harness.
func Items(vectors [][]float32) []groundtruth.Item {
	items := make([]groundtruth.Item, len(vectors))
	for i, v := range vectors {
		items[i] = groundtruth.Item{ID: strconv.Itoa(i), Vector: v}
	}
	return items
}

// Shuffle returns a permuted copy of items.
func (r *RNG) Shuffle(items []groundtruth.Item) []groundtruth.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]groundtruth.Item, len(items))
	copy(out, items)
	r.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// BruteForceSearch performs exact search for ground truth.
// Ties keep input order, matching the first-seen policy of groundtruth.
func BruteForceSearch(items []groundtruth.Item, query []float32, k int, metric distance.Metric) []SearchResult {
	fn, err := distance.Provider(metric)
	if err != nil {
		panic(err)
	}

	results := make([]SearchResult, len(items))
	for i, it := range items {
		results[i] = SearchResult{ID: it.ID, Distance: fn(query, it.Vector)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// IDs extracts the identifiers of results in order.
func IDs(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func scale(v []float32, s float32) {
	for i := range v {
		v[i] *= s
	}
}
