package tiering

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/tierkv/core"
)

// ErrQueueInvariant is returned (or raised via MustPersisted) when an entry
// surfaces in the free queue without having been persisted first.
var ErrQueueInvariant = fmt.Errorf("tiering: free queue entry not persisted")

// ColdWriter persists a batch of key/value pairs to cold storage. It returns
// the number of pairs durably written; on error the count covers only the
// prefix that succeeded.
type ColdWriter interface {
	PersistBatch(ctx context.Context, keys []string, values [][]byte) (int, error)
}

// Tierer drains the evict queue in batches, persisting entries to cold
// storage and handing the survivors to the free queue.
type Tierer struct {
	Cold      ColdWriter
	BatchSize int
	Logger    *slog.Logger

	// Lookup resolves a key to its live object, or nil when the key was
	// deleted or overwritten after being queued. Stale entries are skipped.
	Lookup func(key string) *core.Object
}

// BatchTier pops up to BatchSize live entries from evictQ, bounded by the
// room left in freeQ, persists them and pushes them onto freeQ in
// persistence order. Entries that fail to persist are re-queued at the head
// of evictQ in their original order. Returns the number of entries moved to
// freeQ.
func (t *Tierer) BatchTier(ctx context.Context, evictQ, freeQ *Queue) (int, error) {
	// The batch never exceeds the free queue's remaining room. A persisted
	// entry that cannot enter the free queue is stranded: it is skipped by
	// candidate sampling and never reaches the clearing stage.
	limit := freeQ.Cap() - freeQ.Len()
	if limit > t.BatchSize {
		limit = t.BatchSize
	}
	if limit <= 0 {
		if t.Logger != nil {
			t.Logger.Debug("free queue full, skipping tiering pass")
		}
		return 0, nil
	}

	batch := make([]Entry, 0, limit)
	keys := make([]string, 0, limit)
	values := make([][]byte, 0, limit)

	for len(batch) < limit {
		e, ok := evictQ.Pop()
		if !ok {
			break
		}
		if t.Lookup != nil {
			live := t.Lookup(e.Key)
			if live == nil || live != e.Obj {
				continue // deleted or overwritten since candidacy
			}
		}
		e.Obj.Location = core.LocationFlushing
		batch = append(batch, e)
		keys = append(keys, e.Key)
		values = append(values, e.Obj.Data)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	written, err := t.Cold.PersistBatch(ctx, keys, values)
	if written > len(batch) {
		written = len(batch)
	}
	for i := 0; i < written; i++ {
		batch[i].Obj.Location = core.LocationPersisted
		// Cannot fail: the batch was capped at the queue's remaining room
		// and the owning database serializes both queues.
		freeQ.Push(batch[i])
	}
	if err != nil {
		// Re-queue the unpersisted tail at the head, keeping order.
		for i := len(batch) - 1; i >= written; i-- {
			batch[i].Obj.Location = core.LocationHot
			if !evictQ.PushFront(batch[i]) {
				break
			}
		}
		return written, fmt.Errorf("tiering: persist batch: %w", err)
	}
	return written, nil
}

// MustPersisted asserts that a free queue entry reached cold storage. A
// violation means the two-stage pipeline is corrupted and memory about to be
// reclaimed may hold the only copy of the data, so it is fatal.
func MustPersisted(e Entry) {
	if e.Obj.Location != core.LocationPersisted {
		panic(fmt.Errorf("%w: key %q in state %s", ErrQueueInvariant, e.Key, e.Obj.Location))
	}
}
