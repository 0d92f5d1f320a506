package tierkv

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/tierkv/coldstore"
	"github.com/hupe1980/tierkv/core"
	"github.com/hupe1980/tierkv/internal/cache"
)

// Set stores value under key. When a memory limit is configured, the write
// is admitted only after reclamation brings usage back under it; with the
// no-eviction policy a write over the limit is rejected with a
// MemoryLimitError.
func (e *Engine) Set(ctx context.Context, db core.DBID, key string, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return err
	}

	start := time.Now()

	obj := &core.Object{
		Data:    value,
		Recency: e.clock.Value(),
		Freq:    e.lfu.Touch(),
	}
	size := obj.MemSize(key)

	// Reserve the growth first so reclamation sees the post-write picture.
	e.rc.Track(size)
	if err := e.reclaimIfNeeded(ctx, d); err != nil {
		e.rc.Release(size)
		e.metrics.RecordSet(time.Since(start), err)
		return err
	}

	d.mu.Lock()
	prev, replaced := d.ks.Set(key, obj)
	if replaced {
		e.rc.Release(prev.MemSize(key))
	}
	d.mu.Unlock()

	if !replaced {
		// The key may have a cold copy from a previous life; never serve it
		// from cache over the fresh hot value.
		e.invalidateColdValue(db, key)
	}

	e.metrics.RecordSet(time.Since(start), nil)
	return nil
}

// Get returns the value for key, reading through to the cold store when the
// key's memory was reclaimed. Cold reads do not re-admit the value to the
// hot tier. The returned slice is shared and must not be modified.
func (e *Engine) Get(ctx context.Context, db core.DBID, key string) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	d.mu.Lock()
	obj, ok := d.ks.Get(key)
	expiredNow := false
	if ok && objectExpired(obj) {
		d.ks.Delete(key)
		e.rc.Release(obj.MemSize(key))
		ok = false
		expiredNow = true
	}
	if ok {
		e.touch(obj)
		data := obj.Data
		d.mu.Unlock()
		e.metrics.RecordGet(false, time.Since(start), nil)
		return data, nil
	}
	d.mu.Unlock()

	if expiredNow {
		_ = e.coldValues.Delete(ctx, coldName(db, key))
		e.metrics.RecordGet(false, time.Since(start), ErrNotFound)
		return nil, ErrNotFound
	}

	data, err := e.coldValues.Get(ctx, coldName(db, key))
	if errors.Is(err, coldstore.ErrNotFound) {
		err = ErrNotFound
	}
	e.logger.LogColdRead(ctx, key, err)
	e.metrics.RecordGet(true, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes key from both tiers. Deleting a missing key is not an
// error.
func (e *Engine) Delete(ctx context.Context, db core.DBID, key string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if obj, ok := d.ks.Delete(key); ok {
		e.rc.Release(obj.MemSize(key))
	}
	d.mu.Unlock()

	return e.coldValues.Delete(ctx, coldName(db, key))
}

// Expire sets the time to live for key. A non-positive ttl clears the
// expiration, making the key non-volatile again. Returns ErrNotFound when
// the key is not resident in the hot tier.
func (e *Engine) Expire(_ context.Context, db core.DBID, key string, ttl time.Duration) error {
	if e.closed.Load() {
		return ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.ks.Get(key)
	if !ok {
		return ErrNotFound
	}
	if objectExpired(obj) {
		d.ks.Delete(key)
		e.rc.Release(obj.MemSize(key))
		return ErrNotFound
	}

	if ttl <= 0 {
		d.ks.SetExpire(key, 0)
	} else {
		d.ks.SetExpire(key, time.Now().UnixMilli()+ttl.Milliseconds())
	}
	return nil
}

// touch refreshes the access metadata of an object under the configured
// policy: frequency state for LFU policies, the recency clock otherwise.
func (e *Engine) touch(o *core.Object) {
	if e.opts.policy.IsLFU() {
		o.Freq.Counter = e.lfu.Increment(e.lfu.DecayAndReturn(&o.Freq))
	} else {
		o.Recency = e.clock.Value()
	}
}

func objectExpired(o *core.Object) bool {
	return o.ExpireAt != 0 && o.ExpireAt <= time.Now().UnixMilli()
}

// invalidateColdValue drops any cached cold copy of the key.
func (e *Engine) invalidateColdValue(db core.DBID, key string) {
	if e.blockCache == nil {
		return
	}
	target := cache.Key{Kind: cache.KindValue, Name: coldName(db, key)}
	e.blockCache.Invalidate(func(k cache.Key) bool { return k == target })
}
