package coldstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a cold object does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for the persistent tier holding evicted values.
// Objects are immutable once written; an overwrite replaces the whole value.
type Store interface {
	// PersistBatch durably writes the given key/value pairs in order. It
	// returns the number of leading pairs that were persisted; on error the
	// count covers only the prefix that succeeded.
	PersistBatch(ctx context.Context, keys []string, values [][]byte) (int, error)
	// Get reads back a value. Returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// BatchGetter is implemented by stores that can resolve several objects in
// one parallel call. Callers type-assert for it to warm caches ahead of
// sequential reads.
type BatchGetter interface {
	GetMulti(ctx context.Context, names []string) ([][]byte, error)
}
