// Package tierkv provides an embedded hybrid key-value engine for Go.
//
// Tierkv keeps the working set in memory and tiers cold data to a pluggable
// persistent store, with production-ready features including:
//
//   - Approximate LRU/LFU/TTL eviction with O(1) memory overhead per key
//   - Two-stage tiering pipeline: candidates are batch-persisted to the cold
//     store before their memory is reclaimed, never after
//   - Memory governor with a soft reclamation threshold and IO throttling
//   - Pluggable cold backends: in-memory, local disk, S3, MinIO, with
//     optional zstd/lz4 compression and a read-through block cache
//   - Relational layer: partitioned row-group tables with a condition
//     language for partition pruning and lazy scans across both tiers
//   - Structured logging (log/slog) and pluggable metrics
//
// # Quick Start
//
// Create an engine with a memory limit and an eviction policy:
//
//	kv, err := tierkv.New(
//	    tierkv.WithMaxMemory(256<<20),
//	    tierkv.WithEvictionPolicy(core.AllkeysLFU),
//	    tierkv.WithColdStore(store),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer kv.Close()
//
//	if err := kv.Set(ctx, 0, "user:42", payload); err != nil { ... }
//	value, err := kv.Get(ctx, 0, "user:42")
//
// Values evicted under memory pressure remain readable: Get falls through to
// the cold store when a key is no longer resident.
//
// Relational data is organized into partitions of sealed row groups:
//
//	rg, row, err := kv.InsertRow(ctx, 0, 100, "0:5", map[int]string{0: "5", 1: "alice"})
//	for r, err := range kv.Scan(ctx, 0, 100, "0,1", "col0 == 5") { ... }
package tierkv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	tkcodec "github.com/hupe1980/tierkv/codec"
	"github.com/hupe1980/tierkv/coldstore"
	"github.com/hupe1980/tierkv/core"
	"github.com/hupe1980/tierkv/internal/cache"
	"github.com/hupe1980/tierkv/internal/eviction"
	"github.com/hupe1980/tierkv/internal/keyspace"
	"github.com/hupe1980/tierkv/internal/lazyfree"
	"github.com/hupe1980/tierkv/internal/relational"
	"github.com/hupe1980/tierkv/internal/resource"
	"github.com/hupe1980/tierkv/internal/tiering"
)

// database is one logical keyspace with its own tiering pipeline. All access
// to its fields goes through mu; the engine never holds two database locks at
// once.
type database struct {
	id core.DBID

	mu     sync.Mutex
	ks     *keyspace.Keyspace
	rel    *relational.Store
	evictQ *tiering.Queue
	freeQ  *tiering.Queue
	tierer tiering.Tierer
}

// Engine is the hybrid in-memory/cold-store key-value engine.
type Engine struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector

	rc     *resource.Controller
	clock  *eviction.Clock
	lfu    *eviction.LFU
	scorer eviction.Scorer

	// pool holds scored eviction candidates across databases. Guarded by
	// poolMu; the pool itself is not concurrency safe.
	poolMu sync.Mutex
	pool   *eviction.Pool

	reaper *lazyfree.Reaper

	// coldValues serves reads of evicted plain values, coldBlocks reads of
	// sealed row-group blocks. Both wrap the same backend; they differ only
	// in the cache kind used for invalidation.
	coldValues coldstore.Store
	coldBlocks coldstore.Store
	blockCache cache.BlockCache

	dbs []*database

	paused atomic.Bool
	closed atomic.Bool
}

// New creates an engine. Without WithColdStore an in-memory cold store is
// used, which makes tiering lossless within the process but provides no
// durability across restarts.
func New(optFns ...Option) (*Engine, error) {
	opts := applyOptions(optFns)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   opts.maxMemory,
		CacheLimitBytes:    opts.cacheSize,
		IOLimitBytesPerSec: opts.ioLimit,
	})

	backend := opts.cold
	if backend == nil {
		backend = coldstore.NewMemoryStore()
	}
	if opts.compression != coldstore.CodecNone {
		cs, err := coldstore.NewCompressingStore(backend, opts.compression)
		if err != nil {
			return nil, fmt.Errorf("tierkv: compressing store: %w", err)
		}
		backend = cs
	}

	e := &Engine{
		opts:    opts,
		logger:  opts.logger.WithPolicy(opts.policy),
		metrics: opts.metricsCollector,
		rc:      rc,
		clock:   eviction.NewClock(),
		lfu:     eviction.NewLFU(opts.lfuLogFactor, opts.lfuDecayMinutes),
		pool:    eviction.NewPool(),
		reaper:  lazyfree.NewReaper(0, rc, opts.logger.Logger),
	}
	e.scorer = eviction.Scorer{Clock: e.clock, LFU: e.lfu}

	switch {
	case opts.diskCacheDir != "":
		dc, err := cache.NewDiskBlockCache(cache.DiskCacheConfig{
			RootDir:      opts.diskCacheDir,
			MaxSizeBytes: opts.cacheSize,
		})
		if err != nil {
			return nil, fmt.Errorf("tierkv: disk cache: %w", err)
		}
		e.blockCache = dc
	case opts.cacheSize > 0:
		e.blockCache = cache.NewShardedLRUBlockCache(opts.cacheSize, rc)
	}
	if e.blockCache != nil {
		e.coldValues = coldstore.NewCachingStore(backend, e.blockCache, cache.KindValue)
		e.coldBlocks = coldstore.NewCachingStore(backend, e.blockCache, cache.KindRowGroup)
	} else {
		e.coldValues = backend
		e.coldBlocks = backend
	}

	e.dbs = make([]*database, opts.numDBs)
	for i := range e.dbs {
		d := &database{
			id:     core.DBID(i),
			ks:     keyspace.New(),
			rel:    relational.NewStore(),
			evictQ: tiering.NewQueue(opts.evictQueueSize),
			freeQ:  tiering.NewQueue(opts.freeQueueSize),
		}
		// Tiering writes bypass the block cache: freshly persisted objects
		// are still resident, so caching them would only duplicate memory.
		d.tierer = tiering.Tierer{
			Cold:      &throttledColdWriter{rc: rc, inner: backend, db: d.id},
			BatchSize: opts.batchTieringSize,
			Logger:    opts.logger.Logger,
			Lookup: func(key string) *core.Object {
				o, ok := d.ks.Get(key)
				if !ok {
					return nil
				}
				return o
			},
		}
		e.dbs[i] = d
	}

	e.reaper.Start()

	return e, nil
}

// db resolves a database id.
func (e *Engine) db(id core.DBID) (*database, error) {
	if int(id) < 0 || int(id) >= len(e.dbs) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDB, id)
	}
	return e.dbs[id], nil
}

// coldName namespaces a key per database in the shared cold store.
func coldName(db core.DBID, key string) string {
	return strconv.Itoa(int(db)) + "/" + key
}

// SetPaused suspends or resumes memory reclamation. While paused, writes
// above the limit succeed and usage may overshoot; callers use this around
// bulk loads.
func (e *Engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

// NumDBs returns the number of logical databases.
func (e *Engine) NumDBs() int { return len(e.dbs) }

// throttledColdWriter applies the engine IO budget to tiering writes and
// namespaces keys per database before they reach the shared backend.
type throttledColdWriter struct {
	rc    *resource.Controller
	inner coldstore.Store
	db    core.DBID
}

func (w *throttledColdWriter) PersistBatch(ctx context.Context, keys []string, values [][]byte) (int, error) {
	total := 0
	for _, v := range values {
		total += len(v)
	}
	if err := w.rc.AcquireIO(ctx, total); err != nil {
		return 0, err
	}

	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = coldName(w.db, k)
	}
	return w.inner.PersistBatch(ctx, namespaced, values)
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	MemoryUsed  int64
	MemoryLimit int64
	CacheUsed   int64

	Keys         int
	VolatileKeys int

	EvictQueueLen int
	FreeQueueLen  int

	CacheHits   int64
	CacheMisses int64

	LazyfreePending int64
	LazyfreeFreed   int64
}

// Stats gathers usage counters across all databases.
func (e *Engine) Stats() Stats {
	s := Stats{
		MemoryUsed:      e.rc.EffectiveUsage(),
		MemoryLimit:     e.rc.MemoryLimit(),
		CacheUsed:       e.rc.CacheUsage(),
		LazyfreePending: e.reaper.Pending(),
		LazyfreeFreed:   e.reaper.FreedBytes(),
	}
	for _, d := range e.dbs {
		d.mu.Lock()
		s.Keys += d.ks.Len()
		s.VolatileKeys += d.ks.VolatileLen()
		s.EvictQueueLen += d.evictQ.Len()
		s.FreeQueueLen += d.freeQ.Len()
		d.mu.Unlock()
	}
	if e.blockCache != nil {
		s.CacheHits, s.CacheMisses = e.blockCache.Stats()
	}
	return s
}

// valueCodec returns the configured row-group block codec.
func (e *Engine) valueCodec() tkcodec.Codec { return e.opts.codec }
