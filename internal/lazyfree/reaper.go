// Package lazyfree reclaims the memory of large evicted values on a
// background worker so the calling path does not stall on deallocation.
package lazyfree

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Slots grants background worker capacity, typically the resource
// controller's background semaphore. A nil Slots leaves the worker
// unthrottled.
type Slots interface {
	AcquireBackground(ctx context.Context) error
	ReleaseBackground()
}

type job struct {
	size    int64
	release func()
}

// Reaper runs deferred frees on a single background goroutine. Callers that
// hit the memory limit while jobs are pending can poll Pending and wait for
// the backlog to drain instead of failing outright.
type Reaper struct {
	logger *slog.Logger
	slots  Slots

	jobs    chan job
	pending atomic.Int64
	freed   atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewReaper creates a reaper with the given job backlog capacity. The worker
// holds a slot from slots while executing a deferred free.
func NewReaper(backlog int, slots Slots, logger *slog.Logger) *Reaper {
	if backlog <= 0 {
		backlog = 128
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reaper{
		logger: logger,
		slots:  slots,
		jobs:   make(chan job, backlog),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call more than once.
func (r *Reaper) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Stop drains outstanding jobs and stops the worker. Safe to call more than
// once; Submit must not be called after Stop.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.jobs)
		<-r.done
	})
}

// Submit queues a deferred free of size bytes. The release callback performs
// the actual accounting. When the backlog is full the free runs inline.
func (r *Reaper) Submit(size int64, release func()) {
	r.pending.Add(1)
	select {
	case r.jobs <- job{size: size, release: release}:
	default:
		// Backlog full: freeing inline is slower but never loses the job.
		r.logger.Debug("lazyfree backlog full, freeing inline", slog.Int64("size", size))
		r.execute(job{size: size, release: release})
	}
}

// Pending returns the number of submitted frees not yet executed.
func (r *Reaper) Pending() int64 { return r.pending.Load() }

// FreedBytes returns the total bytes reclaimed since the reaper started.
func (r *Reaper) FreedBytes() int64 { return r.freed.Load() }

func (r *Reaper) run() {
	defer close(r.done)
	ctx := context.Background()
	for j := range r.jobs {
		// Inline frees on the submit path bypass the slot; only the worker
		// competes for background capacity.
		held := r.slots != nil && r.slots.AcquireBackground(ctx) == nil
		r.execute(j)
		if held {
			r.slots.ReleaseBackground()
		}
	}
}

func (r *Reaper) execute(j job) {
	if j.release != nil {
		j.release()
	}
	r.freed.Add(j.size)
	r.pending.Add(-1)
}
