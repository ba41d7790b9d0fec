package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryBudgetExceeded is returned when a reservation does not fit the budget.
var ErrMemoryBudgetExceeded = errors.New("resource: memory budget exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for tracker state.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentSearches is the maximum number of in-flight trial searches.
	// If 0, defaults to 1.
	MaxConcurrentSearches int64

	// IngestVectorsPerSec caps the ingest throughput.
	// If 0, unlimited.
	IngestVectorsPerSec float64

	// IngestBurst is the limiter bucket size. Defaults to one second worth of vectors.
	IngestBurst int
}

// Controller manages shared resources (memory, concurrency, ingest rate).
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	searchSem *semaphore.Weighted

	// Ingest
	ingestLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentSearches <= 0 {
		cfg.MaxConcurrentSearches = 1
	}

	c := &Controller{
		cfg:       cfg,
		searchSem: semaphore.NewWeighted(cfg.MaxConcurrentSearches),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IngestVectorsPerSec > 0 {
		burst := cfg.IngestBurst
		if burst <= 0 {
			burst = max(1, int(cfg.IngestVectorsPerSec))
		}
		c.cfg.IngestBurst = burst
		c.ingestLimiter = rate.NewLimiter(rate.Limit(cfg.IngestVectorsPerSec), burst)
	}

	return c
}

// ReserveMemory reserves bytes without blocking. Tracker state lives for the
// whole run, so waiting for memory to free up would never succeed.
func (c *Controller) ReserveMemory(bytes int64) error {
	if c.TryAcquireMemory(bytes) {
		return nil
	}
	return fmt.Errorf("%w: need %d bytes, limit %d, in use %d",
		ErrMemoryBudgetExceeded, bytes, c.cfg.MemoryLimitBytes, c.MemoryUsage())
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireSearch reserves a search slot. Blocks if all slots are busy.
func (c *Controller) AcquireSearch(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.searchSem.Acquire(ctx, 1)
}

// ReleaseSearch releases a search slot.
func (c *Controller) ReleaseSearch() {
	if c == nil {
		return
	}
	c.searchSem.Release(1)
}

// AcquireIngest waits until the ingest limit allows n more vectors.
// Requests larger than the burst are split so they never fail outright.
func (c *Controller) AcquireIngest(ctx context.Context, n int) error {
	if c == nil || c.ingestLimiter == nil {
		return nil
	}
	burst := c.ingestLimiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.ingestLimiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
