// Package resource provides the global memory governor: keyspace memory
// accounting with a configured limit and soft threshold, overhead registers
// for memory that must not count toward eviction decisions, background
// worker slots and IO throttling for tiering writes.
package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the configured limit for keyspace memory.
	// If 0, no limit is enforced (only tracking).
	MemoryLimitBytes int64

	// SoftThresholdNum/Den define the fraction of the limit at which
	// reclamation starts. Defaults to 8/10.
	SoftThresholdNum int64
	SoftThresholdDen int64

	// CacheLimitBytes is a hard limit for cache-managed memory, enforced
	// through TryAcquireCache. If 0, caches are only tracked.
	CacheLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of concurrent background
	// jobs (lazy free, tiering flushes). If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum IO throughput for tiering writes.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages global resources (memory, concurrency, IO).
type Controller struct {
	cfg Config

	// Keyspace memory accounting. Tracked unconditionally: the write path
	// records growth first and the reclamation loop works it back down.
	memUsed atomic.Int64

	// Overheads excluded from the eviction picture: replica output buffers
	// and the pending durability buffer.
	replicaOverhead    atomic.Int64
	durabilityOverhead atomic.Int64

	// Cache memory is bounded with a semaphore so caches can fail fast.
	cacheSem  *semaphore.Weighted
	cacheUsed atomic.Int64

	// Concurrency
	bgSem *semaphore.Weighted

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}
	if cfg.SoftThresholdNum <= 0 || cfg.SoftThresholdDen <= 0 {
		cfg.SoftThresholdNum, cfg.SoftThresholdDen = 8, 10
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.CacheLimitBytes > 0 {
		c.cacheSem = semaphore.NewWeighted(cfg.CacheLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Track records keyspace memory growth. Unlike cache acquisition this never
// fails: the caller is expected to run reclamation afterwards.
func (c *Controller) Track(bytes int64) {
	if c == nil || bytes == 0 {
		return
	}
	c.memUsed.Add(bytes)
}

// Release records keyspace memory shrinkage.
func (c *Controller) Release(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the raw tracked keyspace memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// EffectiveUsage returns the tracked memory minus the replica and
// durability overheads, clamped at zero. This is the number the
// reclamation loop compares against the limit.
func (c *Controller) EffectiveUsage() int64 {
	if c == nil {
		return 0
	}
	used := c.memUsed.Load() - c.replicaOverhead.Load() - c.durabilityOverhead.Load()
	if used < 0 {
		return 0
	}
	return used
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// SoftLimit returns the reclamation start threshold.
func (c *Controller) SoftLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes / c.cfg.SoftThresholdDen * c.cfg.SoftThresholdNum
}

// SetReplicaOverhead records the current replica output buffer size.
func (c *Controller) SetReplicaOverhead(bytes int64) {
	if c == nil {
		return
	}
	c.replicaOverhead.Store(bytes)
}

// SetDurabilityOverhead records the current pending durability buffer size.
func (c *Controller) SetDurabilityOverhead(bytes int64) {
	if c == nil {
		return
	}
	c.durabilityOverhead.Store(bytes)
}

// TryAcquireCache attempts to reserve cache memory without blocking.
func (c *Controller) TryAcquireCache(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.cacheSem != nil {
		if !c.cacheSem.TryAcquire(bytes) {
			return false
		}
	}
	c.cacheUsed.Add(bytes)
	return true
}

// ReleaseCache releases reserved cache memory.
func (c *Controller) ReleaseCache(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.cacheSem != nil {
		c.cacheSem.Release(bytes)
	}
	c.cacheUsed.Add(-bytes)
}

// CacheUsage returns the current cache memory usage in bytes.
func (c *Controller) CacheUsage() int64 {
	if c == nil {
		return 0
	}
	return c.cacheUsed.Load()
}

// AcquireBackground reserves a background worker slot, blocking if all
// slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground attempts to reserve a background worker slot
// without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
