package testutil

import (
	"testing"

	"github.com/hupe1980/vecrecall/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestUniformRangeVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformRangeVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(-1.0))
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UnitVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))

	// Check normalization
	for _, vec := range v {
		var sum float32
		for _, val := range vec {
			sum += val * val
		}
		assert.InDelta(t, float32(1.0), sum, 1e-5)
	}
}

func TestClusteredVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.ClusteredVectors(100, 32, 5, 0.1)

	assert.Equal(t, 100, len(v))
	assert.Equal(t, 32, len(v[0]))
}

func TestNewRNG_Deterministic(t *testing.T) {
	a := NewRNG(4711).UniformRangeVectors(2, 10)
	b := NewRNG(4711).UniformRangeVectors(2, 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, NewRNG(4712).UniformRangeVectors(2, 10))
}

func TestItems(t *testing.T) {
	rng := NewRNG(4711)
	items := Items(rng.UniformRangeVectors(3, 4))

	require.Len(t, items, 3)
	assert.Equal(t, "0", items[0].ID)
	assert.Equal(t, "2", items[2].ID)
	assert.Len(t, items[1].Vector, 4)
}

func TestShuffle(t *testing.T) {
	rng := NewRNG(4711)
	items := Items(rng.UniformVectors(50, 2))

	shuffled := rng.Shuffle(items)
	assert.ElementsMatch(t, items, shuffled)
	assert.NotEqual(t, items, shuffled)
}

func TestBruteForceSearch(t *testing.T) {
	items := Items([][]float32{
		{1, 0},
		{5, 5},
		{0, 1},
		{0.5, 0.5},
	})

	res := BruteForceSearch(items, []float32{0, 0}, 3, distance.MetricL2)
	assert.Equal(t, []string{"3", "0", "2"}, IDs(res))
	assert.InDelta(t, 0.7071, res[0].Distance, 1e-4)

	res = BruteForceSearch(items, []float32{0, 0}, 10, distance.MetricL2)
	assert.Len(t, res, 4)

	res = BruteForceSearch(items, []float32{1, 0}, 1, distance.MetricCosine)
	assert.Equal(t, []string{"0"}, IDs(res))
}
