package tierkv

import (
	"github.com/hupe1980/tierkv/codec"
	"github.com/hupe1980/tierkv/coldstore"
	"github.com/hupe1980/tierkv/core"
)

const (
	defaultNumDBs            = 16
	defaultSampleCount       = 5
	defaultLFULogFactor      = 10
	defaultLFUDecayMinutes   = 1
	defaultBatchTieringSize  = 40
	defaultEvictQueueSize    = 128
	defaultFreeQueueSize     = 128
	defaultRowGroupSize      = 1000
	defaultLazyfreeThreshold = 1 << 12
	defaultCacheSize         = 64 << 20
)

type options struct {
	maxMemory         int64
	policy            core.EvictionPolicy
	sampleCount       int
	lfuLogFactor      float64
	lfuDecayMinutes   int
	batchTieringSize  int
	evictQueueSize    int
	freeQueueSize     int
	numDBs            int
	rowGroupSize      int
	lazyfreeThreshold int64
	cacheSize         int64
	diskCacheDir      string
	ioLimit           int64
	compression       coldstore.Codec
	cold              coldstore.Store
	codec             codec.Codec
	logger            *Logger
	metricsCollector  MetricsCollector
}

func defaultOptions() options {
	return options{
		policy:            core.NoEviction,
		sampleCount:       defaultSampleCount,
		lfuLogFactor:      defaultLFULogFactor,
		lfuDecayMinutes:   defaultLFUDecayMinutes,
		batchTieringSize:  defaultBatchTieringSize,
		evictQueueSize:    defaultEvictQueueSize,
		freeQueueSize:     defaultFreeQueueSize,
		numDBs:            defaultNumDBs,
		rowGroupSize:      defaultRowGroupSize,
		lazyfreeThreshold: defaultLazyfreeThreshold,
		cacheSize:         defaultCacheSize,
		compression:       coldstore.CodecNone,
		codec:             codec.Default,
		logger:            NoopLogger(),
		metricsCollector:  NoopMetricsCollector{},
	}
}

// Option configures engine construction.
type Option func(*options)

func applyOptions(optFns []Option) options {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// WithMaxMemory sets the memory limit in bytes. Zero means unlimited; no
// reclamation ever runs.
func WithMaxMemory(bytes int64) Option {
	return func(o *options) {
		o.maxMemory = bytes
	}
}

// WithEvictionPolicy selects how reclamation chooses its victims.
func WithEvictionPolicy(policy core.EvictionPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithSampleCount sets how many keys each candidate refill samples. Larger
// values approximate exact LRU/LFU more closely at higher scan cost.
func WithSampleCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sampleCount = n
		}
	}
}

// WithLFULogFactor tunes how quickly LFU counter increments become unlikely
// as the counter grows.
func WithLFULogFactor(factor float64) Option {
	return func(o *options) {
		if factor > 0 {
			o.lfuLogFactor = factor
		}
	}
}

// WithLFUDecayMinutes sets the LFU counter decay interval. Zero disables
// decay.
func WithLFUDecayMinutes(minutes int) Option {
	return func(o *options) {
		o.lfuDecayMinutes = minutes
	}
}

// WithBatchTieringSize sets how many candidates one tiering pass persists.
func WithBatchTieringSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchTieringSize = n
		}
	}
}

// WithEvictQueueCapacity sets the per-database candidate queue capacity.
func WithEvictQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.evictQueueSize = n
		}
	}
}

// WithFreeQueueCapacity sets the per-database persisted queue capacity.
func WithFreeQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.freeQueueSize = n
		}
	}
}

// WithNumDBs sets the number of logical databases.
func WithNumDBs(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.numDBs = n
		}
	}
}

// WithRowGroupSize sets how many rows a row group accepts before it seals
// and becomes a tiering candidate.
func WithRowGroupSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.rowGroupSize = n
		}
	}
}

// WithLazyfreeThreshold sets the value size above which reclamation defers
// the free to the background reaper.
func WithLazyfreeThreshold(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.lazyfreeThreshold = bytes
		}
	}
}

// WithCacheSize sets the block cache budget for cold reads. Zero disables
// the cache.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheSize = bytes
	}
}

// WithDiskCache keeps the cold-read block cache on local disk under dir
// instead of in memory. Useful in front of remote backends, where re-fetching
// is expensive and cache memory would compete with the keyspace.
func WithDiskCache(dir string) Option {
	return func(o *options) {
		o.diskCacheDir = dir
	}
}

// WithIOLimit caps the cold store write throughput in bytes per second.
// Zero means unthrottled.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithCompression compresses cold store payloads with the given codec.
func WithCompression(c coldstore.Codec) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithColdStore sets the persistence backend evicted values flush to.
// Without one, an in-memory store is used and tiering provides no durability
// across restarts.
func WithColdStore(s coldstore.Store) Option {
	return func(o *options) {
		o.cold = s
	}
}

// WithCodec configures the codec used for row group blocks.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
