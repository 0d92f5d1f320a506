package cache

import (
	"context"

	"github.com/hupe1980/tierkv/core"
)

// Kind separates key spaces so invalidation can target one class of entries.
type Kind uint8

const (
	KindUnknown  Kind = iota
	KindValue         // plain key/value payloads read back from cold storage
	KindRowGroup      // serialized relational row group blocks
)

// Key identifies a cached cold block. Name is the cold store key the block
// was persisted under, so it is stable across processes.
type Key struct {
	Kind Kind
	DB   core.DBID
	Name string
}

// BlockCache is a byte-oriented cache for immutable cold blocks. Returned
// slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. Implementations may copy or retain; caller must treat b as immutable.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Close releases any resources (e.g. background workers).
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
