package groundtruth_test

import (
	"testing"

	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/groundtruth"
	"github.com/hupe1980/vecrecall/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_EqualsSingleTracker(t *testing.T) {
	rng := testutil.NewRNG(99)
	queries := rng.UniformRangeVectors(5, 12)
	items := testutil.Items(rng.UniformRangeVectors(900, 12))

	single, err := groundtruth.New(queries, 10, distance.MetricL2)
	require.NoError(t, err)
	require.NoError(t, single.UpdateBatch(items))

	const numShards = 3
	shards := make([]*groundtruth.Tracker, numShards)
	for s := range shards {
		shards[s], err = groundtruth.New(queries, 10, distance.MetricL2)
		require.NoError(t, err)
	}
	for i, it := range items {
		require.NoError(t, shards[i%numShards].Update(it.ID, it.Vector))
	}

	merged, err := groundtruth.Merge(shards...)
	require.NoError(t, err)
	assert.Equal(t, single.Seen(), merged.Seen())

	for qi := range queries {
		want, _ := single.GroundTruth(qi)
		got, _ := merged.GroundTruth(qi)
		assert.Equal(t, want, got, "query %d", qi)
	}
}

func TestMerge_TiesPreferEarlierShard(t *testing.T) {
	q := [][]float32{{0, 0}}
	a, err := groundtruth.New(q, 1, distance.MetricL2)
	require.NoError(t, err)
	b, err := groundtruth.New(q, 1, distance.MetricL2)
	require.NoError(t, err)

	require.NoError(t, b.Update("from-b", []float32{1, 0}))
	require.NoError(t, a.Update("from-a", []float32{0, 1}))

	merged, err := groundtruth.Merge(a, b)
	require.NoError(t, err)
	got, _ := merged.GroundTruth(0)
	assert.Equal(t, []string{"from-a"}, got)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	q := [][]float32{{0, 0}}
	a, _ := groundtruth.New(q, 2, distance.MetricL2)
	b, _ := groundtruth.New(q, 2, distance.MetricL2)
	require.NoError(t, a.Update("a1", []float32{3, 0}))
	require.NoError(t, b.Update("b1", []float32{1, 0}))

	merged, err := groundtruth.Merge(a, b)
	require.NoError(t, err)
	require.NoError(t, merged.Update("m1", []float32{0, 0}))

	ga, _ := a.GroundTruth(0)
	assert.Equal(t, []string{"a1"}, ga)
	gm, _ := merged.GroundTruth(0)
	assert.Equal(t, []string{"m1", "b1"}, gm)
}

func TestMerge_Incompatible(t *testing.T) {
	q := [][]float32{{0, 0}}
	mk := func(queries [][]float32, k int, m distance.Metric, opts ...groundtruth.Option) *groundtruth.Tracker {
		tr, err := groundtruth.New(queries, k, m, opts...)
		require.NoError(t, err)
		return tr
	}
	base := mk(q, 2, distance.MetricL2)

	tests := []struct {
		name  string
		other *groundtruth.Tracker
	}{
		{"K", mk(q, 3, distance.MetricL2)},
		{"Metric", mk(q, 2, distance.MetricCosine)},
		{"Queries", mk([][]float32{{1, 0}}, 2, distance.MetricL2)},
		{"QueryCount", mk([][]float32{{0, 0}, {1, 1}}, 2, distance.MetricL2)},
		{"Dimension", mk([][]float32{{0, 0, 0}}, 2, distance.MetricL2)},
		{"TieBreak", mk(q, 2, distance.MetricL2, groundtruth.WithTieBreak(groundtruth.TieBreakIdentifier))},
		{"Nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := groundtruth.Merge(base, tt.other)
			assert.ErrorIs(t, err, groundtruth.ErrIncompatible)
		})
	}

	t.Run("NilFirst", func(t *testing.T) {
		_, err := groundtruth.Merge(nil, base)
		assert.ErrorIs(t, err, groundtruth.ErrIncompatible)
	})

	_, err := groundtruth.Merge()
	assert.ErrorIs(t, err, groundtruth.ErrIncompatible)
}
