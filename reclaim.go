package tierkv

import (
	"context"
	"time"

	"github.com/hupe1980/tierkv/core"
	"github.com/hupe1980/tierkv/internal/eviction"
	"github.com/hupe1980/tierkv/internal/keyspace"
	"github.com/hupe1980/tierkv/internal/tiering"
	"github.com/hupe1980/tierkv/relkey"
)

// maxTieringRetries bounds consecutive emergency tiering passes inside one
// reclamation cycle so a stuck backend cannot spin the write path forever.
const maxTieringRetries = 3

// reclaimIfNeeded runs one reclamation cycle against the triggering database
// when memory usage crossed the soft threshold. Other databases keep serving;
// their candidates surface when a write on them triggers reclamation there.
func (e *Engine) reclaimIfNeeded(ctx context.Context, d *database) error {
	if e.rc.MemoryLimit() == 0 || e.paused.Load() {
		return nil
	}
	if e.rc.EffectiveUsage() <= e.rc.SoftLimit() {
		return nil
	}

	start := time.Now()
	freed, err := e.reclaim(ctx, d)
	e.metrics.RecordReclaim(freed, time.Since(start), err)
	e.logger.LogReclaim(ctx, d.id, freed, err)
	return err
}

// reclaim drives the two-stage pipeline until usage drops under the limit.
// Between the soft threshold and the limit only tiering runs, so data moves
// cold early and crossing the limit can free memory without waiting on IO.
func (e *Engine) reclaim(ctx context.Context, d *database) (int64, error) {
	limit := e.rc.MemoryLimit()
	policy := e.opts.policy

	if policy == core.NoEviction {
		if e.rc.EffectiveUsage() > limit {
			return 0, &MemoryLimitError{
				Policy: policy,
				Used:   e.rc.EffectiveUsage(),
				Limit:  limit,
			}
		}
		return 0, nil
	}

	if e.rc.EffectiveUsage() <= limit {
		// Tier ahead of the limit, unless the free queue has no room left
		// for another batch; the next over-limit cycle drains it first.
		// Failures here never reject the write, the backend gets retried
		// once memory is actually exhausted.
		d.mu.Lock()
		backoff := d.freeQ.NearlyFull()
		d.mu.Unlock()
		if !backoff {
			_, _ = e.tierOnce(ctx, d)
		}
		return 0, nil
	}

	var freed int64
	retries := 0

	for e.rc.EffectiveUsage() > limit {
		if err := ctx.Err(); err != nil {
			return freed, err
		}

		d.mu.Lock()
		entry, ok := d.freeQ.Pop()
		if ok {
			tiering.MustPersisted(entry)
			freed += e.clearCandidate(d, entry)
			d.mu.Unlock()
			retries = 0
			continue
		}
		d.mu.Unlock()

		if retries >= maxTieringRetries {
			if e.drainLazyfree(limit) {
				continue
			}
			return freed, &MemoryLimitError{
				Policy: policy,
				Used:   e.rc.EffectiveUsage(),
				Limit:  limit,
				Freed:  freed,
			}
		}
		retries++

		moved, err := e.tierOnce(ctx, d)
		if err != nil {
			return freed, &MemoryLimitError{
				Policy: policy,
				Used:   e.rc.EffectiveUsage(),
				Limit:  limit,
				Freed:  freed,
				cause:  err,
			}
		}
		if moved == 0 {
			// Nothing tierable at all: last hope is memory still held by
			// pending lazy frees.
			if e.drainLazyfree(limit) {
				continue
			}
			return freed, &MemoryLimitError{
				Policy: policy,
				Used:   e.rc.EffectiveUsage(),
				Limit:  limit,
				Freed:  freed,
			}
		}
	}
	return freed, nil
}

// tierOnce refills the evict queue if it ran dry and runs one batch tiering
// pass, reporting how many entries reached the free queue.
func (e *Engine) tierOnce(ctx context.Context, d *database) (int, error) {
	start := time.Now()

	d.mu.Lock()
	if d.evictQ.Empty() {
		e.refillLocked(d)
	}
	moved, err := d.tierer.BatchTier(ctx, d.evictQ, d.freeQ)
	if err != nil {
		err = &PersistenceError{
			Persisted: moved,
			Attempted: moved + d.evictQ.Len(),
			cause:     err,
		}
	}
	d.mu.Unlock()

	e.metrics.RecordTiering(moved, time.Since(start), err)
	e.logger.LogTiering(ctx, d.id, moved, err)
	return moved, err
}

// refillLocked feeds fresh candidates into the evict queue. Scored policies
// sample the keyspace into the shared eviction pool and drain its best
// entries; random policies pick keys directly. Objects already in the
// pipeline are skipped. Caller holds d.mu.
func (e *Engine) refillLocked(d *database) bool {
	policy := e.opts.policy
	added := 0

	if !policy.UsesPool() {
		for range e.opts.sampleCount {
			var (
				key string
				ok  bool
			)
			if policy.IsVolatile() {
				key, ok = d.ks.RandomVolatileKey()
			} else {
				key, ok = d.ks.RandomKey()
			}
			if !ok {
				break
			}
			obj, ok := d.ks.Get(key)
			if !ok || obj.Location != core.LocationHot {
				continue
			}
			if d.evictQ.Push(tiering.Entry{Key: key, Obj: obj}) {
				added++
			}
		}
		return added > 0
	}

	var samples []keyspace.Sample
	if policy.IsVolatile() {
		samples = d.ks.SampleVolatileKeys(e.opts.sampleCount)
	} else {
		samples = d.ks.SampleKeys(e.opts.sampleCount)
	}

	e.poolMu.Lock()
	defer e.poolMu.Unlock()

	for _, s := range samples {
		if s.Obj.Location != core.LocationHot {
			continue
		}
		score, err := e.scorer.Score(s.Obj, policy)
		if err != nil {
			continue
		}
		e.pool.Add(eviction.Candidate{Key: s.Key, Score: score, DB: d.id})
	}

	for {
		c, ok := e.pool.TakeBest()
		if !ok {
			break
		}
		if c.DB != d.id {
			// Left over from a cycle on another database; only a hint, the
			// key will be re-sampled there.
			continue
		}
		obj, ok := d.ks.Get(c.Key)
		if !ok || obj.Location != core.LocationHot {
			continue
		}
		if !d.evictQ.Push(tiering.Entry{Key: c.Key, Obj: obj}) {
			break
		}
		added++
	}
	return added > 0
}

// clearCandidate frees the memory of a persisted entry. For row-group data
// keys the owning partition is flipped to cold first so scans reroute to the
// cold store. Caller holds d.mu.
func (e *Engine) clearCandidate(d *database, entry tiering.Entry) int64 {
	live, ok := d.ks.Get(entry.Key)
	if !ok || live != entry.Obj {
		return 0 // deleted or overwritten after persisting
	}

	if relkey.IsDataKey(entry.Key) {
		if info, err := relkey.ParseDataKey(entry.Key); err == nil {
			meta := relkey.MetaKeyInfo{TableID: info.TableID, Partition: info.Partition}
			if p := d.rel.Partition(meta, false); p != nil {
				_ = p.MarkCold(info.RowGroup)
			}
		}
	}

	d.ks.Delete(entry.Key)

	obj := entry.Obj
	size := obj.MemSize(entry.Key)
	if size >= e.opts.lazyfreeThreshold {
		e.reaper.Submit(size, func() {
			obj.Data = nil
			e.rc.Release(size)
		})
	} else {
		obj.Data = nil
		e.rc.Release(size)
	}

	e.metrics.RecordEviction(1, size)
	return size
}

// drainLazyfree polls the reaper backlog while usage stays over the limit.
// Reports whether the drain brought usage back under it.
func (e *Engine) drainLazyfree(limit int64) bool {
	if e.reaper.Pending() == 0 {
		return false
	}
	for e.reaper.Pending() > 0 && e.rc.EffectiveUsage() > limit {
		time.Sleep(time.Millisecond)
	}
	return e.rc.EffectiveUsage() <= limit
}
