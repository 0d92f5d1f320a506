package coldstore

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tierkv/internal/cache"
)

// CachingStore wraps a Store and adds read-through caching of cold objects.
// Writes invalidate before passing through, so the cache never serves a value
// older than the persisted one.
type CachingStore struct {
	inner Store
	cache cache.BlockCache
	kind  cache.Kind
}

// NewCachingStore creates a new CachingStore. Entries are cached under the
// given kind so callers can invalidate one class of objects at a time.
func NewCachingStore(inner Store, blocks cache.BlockCache, kind cache.Kind) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: blocks,
		kind:  kind,
	}
}

func (s *CachingStore) key(name string) cache.Key {
	return cache.Key{Kind: s.kind, Name: name}
}

func (s *CachingStore) PersistBatch(ctx context.Context, keys []string, values [][]byte) (int, error) {
	for _, k := range keys {
		key := s.key(k)
		s.cache.Invalidate(func(ck cache.Key) bool { return ck == key })
	}
	return s.inner.PersistBatch(ctx, keys, values)
}

func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(ctx, s.key(name)); ok {
		return data, nil
	}
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, s.key(name), data)
	return data, nil
}

// GetMulti reads several cold objects, filling cache misses from the backend
// in parallel. Results are positional; a missing key yields a nil slot and no
// error, other backend failures abort the whole read.
func (s *CachingStore) GetMulti(ctx context.Context, names []string) ([][]byte, error) {
	results := make([][]byte, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for i, name := range names {
		if data, ok := s.cache.Get(ctx, s.key(name)); ok {
			results[i] = data
			continue
		}
		g.Go(func() error {
			data, err := s.inner.Get(gctx, name)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				return err
			}
			s.cache.Set(gctx, s.key(name), data)
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	key := s.key(name)
	s.cache.Invalidate(func(ck cache.Key) bool { return ck == key })
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns cache hit/miss counters.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}
