package vecrecall

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecrecall/groundtruth"
	"github.com/hupe1980/vecrecall/resource"
)

// shardBatchSize is the number of items handed to a shard worker at once.
const shardBatchSize = 256

// IngestSharded consumes src with n trackers in parallel and merges them.
//
// Batches are dealt to the shards round-robin. The merged ground truth
// equals that of a single tracker fed the whole stream, except that ties
// under TieBreakFirstSeen resolve by shard before arrival.
//
// WithMemoryLimit bounds the state of all shards plus the merged result;
// the reservation fails fast with resource.ErrMemoryBudgetExceeded. The
// ingest rate set by WithIngestRate applies to the whole stream. Other
// options are ignored.
func IngestSharded(ctx context.Context, src Source, n int, newTracker func() (*groundtruth.Tracker, error), optFns ...Option) (*groundtruth.Tracker, error) {
	if n < 1 {
		return nil, fmt.Errorf("vecrecall: shard count must be positive, got %d", n)
	}

	o := applyOptions(optFns)
	ctrl := resource.NewController(resource.Config{
		MemoryLimitBytes:    o.memoryLimit,
		IngestVectorsPerSec: o.ingestRate,
		IngestBurst:         shardBatchSize,
	})

	shards := make([]*groundtruth.Tracker, n)
	for i := range shards {
		t, err := newTracker()
		if err != nil {
			return nil, fmt.Errorf("vecrecall: shard %d: %w", i, err)
		}
		if t == nil {
			return nil, ErrNilTracker
		}
		shards[i] = t
	}

	// n shards live until the merge, which allocates one more tracker.
	est := shards[0].MemoryEstimate()
	reserved := est * int64(n)
	if n > 1 {
		reserved += est
	}
	if err := ctrl.ReserveMemory(reserved); err != nil {
		return nil, fmt.Errorf("vecrecall: %d shards: %w", n, err)
	}
	defer ctrl.ReleaseMemory(reserved)

	o.logger.DebugContext(ctx, "sharded ingest started",
		"shards", n,
		"memory_estimate", reserved,
	)

	if n == 1 {
		if err := drain(ctx, src, shards[0], ctrl); err != nil {
			return nil, err
		}
		return shards[0], nil
	}

	g, gctx := errgroup.WithContext(ctx)

	chans := make([]chan []Item, n)
	for i := range chans {
		chans[i] = make(chan []Item, 1)
	}

	for i, t := range shards {
		ch := chans[i]
		g.Go(func() error {
			for batch := range ch {
				if err := t.UpdateBatch(batch); err != nil {
					return fmt.Errorf("vecrecall: shard %d: %w", i, err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()

		next := 0
		batch := make([]Item, 0, shardBatchSize)
		send := func() error {
			select {
			case chans[next] <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			next = (next + 1) % n
			batch = make([]Item, 0, shardBatchSize)
			return nil
		}

		for {
			item, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("vecrecall: read source: %w", err)
			}
			batch = append(batch, item)
			if len(batch) == shardBatchSize {
				if err := ctrl.AcquireIngest(gctx, len(batch)); err != nil {
					return err
				}
				if err := send(); err != nil {
					return err
				}
			}
		}
		if len(batch) > 0 {
			if err := ctrl.AcquireIngest(gctx, len(batch)); err != nil {
				return err
			}
			return send()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groundtruth.Merge(shards...)
}

func drain(ctx context.Context, src Source, t *groundtruth.Tracker, ctrl *resource.Controller) error {
	for {
		item, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("vecrecall: read source: %w", err)
		}
		if err := ctrl.AcquireIngest(ctx, 1); err != nil {
			return err
		}
		if err := t.Update(item.ID, item.Vector); err != nil {
			return err
		}
	}
}
