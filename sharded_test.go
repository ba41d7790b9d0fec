package vecrecall_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/vecrecall"
	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/groundtruth"
	"github.com/hupe1980/vecrecall/resource"
	"github.com/hupe1980/vecrecall/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errSource struct {
	n   int
	err error
}

func (s *errSource) Next(context.Context) (vecrecall.Item, error) {
	if s.n == 0 {
		return vecrecall.Item{}, s.err
	}
	s.n--
	return vecrecall.Item{ID: "x", Vector: []float32{0, 0}}, nil
}

func TestIngestSharded_MatchesSequential(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(3)
	queries := rng.UniformRangeVectors(10, 8)
	items := testutil.Items(rng.UniformRangeVectors(2000, 8))

	factory := func() (*groundtruth.Tracker, error) {
		return groundtruth.New(queries, 10, distance.MetricCosine)
	}

	seq, err := factory()
	require.NoError(t, err)
	require.NoError(t, seq.UpdateBatch(items))

	for _, n := range []int{1, 3, 8} {
		merged, err := vecrecall.IngestSharded(ctx, vecrecall.NewSliceSource(items), n, factory)
		require.NoError(t, err)
		assert.Equal(t, uint64(len(items)), merged.Seen())

		for i := range queries {
			want, _ := seq.GroundTruth(i)
			got, _ := merged.GroundTruth(i)
			assert.Equal(t, want, got, "shards=%d query=%d", n, i)
		}
	}
}

func TestIngestSharded_Errors(t *testing.T) {
	ctx := context.Background()
	factory := func() (*groundtruth.Tracker, error) {
		return groundtruth.New([][]float32{{0, 0}}, 2, distance.MetricL2)
	}

	t.Run("InvalidShardCount", func(t *testing.T) {
		_, err := vecrecall.IngestSharded(ctx, vecrecall.NewSliceSource(nil), 0, factory)
		assert.Error(t, err)
	})

	t.Run("FactoryError", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := vecrecall.IngestSharded(ctx, vecrecall.NewSliceSource(nil), 2, func() (*groundtruth.Tracker, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("SourceError", func(t *testing.T) {
		boom := errors.New("read failed")
		_, err := vecrecall.IngestSharded(ctx, &errSource{n: 1000, err: boom}, 4, factory)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("MemoryLimit", func(t *testing.T) {
		tr, err := factory()
		require.NoError(t, err)
		est := tr.MemoryEstimate()

		// Four shards plus the merged tracker need five estimates.
		_, err = vecrecall.IngestSharded(ctx, vecrecall.NewSliceSource(nil), 4, factory,
			vecrecall.WithMemoryLimit(4*est))
		assert.ErrorIs(t, err, resource.ErrMemoryBudgetExceeded)

		merged, err := vecrecall.IngestSharded(ctx, vecrecall.NewRandomSource(2, 1, 100), 4, factory,
			vecrecall.WithMemoryLimit(5*est))
		require.NoError(t, err)
		assert.Equal(t, uint64(100), merged.Seen())
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		items := []vecrecall.Item{{ID: "a", Vector: []float32{1, 2, 3}}}
		_, err := vecrecall.IngestSharded(ctx, vecrecall.NewSliceSource(items), 2, factory)
		var dm *groundtruth.ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})
}
