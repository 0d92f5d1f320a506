package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/tierkv/internal/resource"
)

func TestLRU_EdgeCases(t *testing.T) {
	rc := resource.NewController(resource.Config{CacheLimitBytes: 100})
	c := NewLRUBlockCache(50, rc)
	ctx := context.Background()
	k := Key{Kind: KindValue, Name: "D:{t100:p1}:1:0:0"}

	// Item larger than capacity
	big := make([]byte, 60)
	c.Set(ctx, k, big)
	_, ok := c.Get(ctx, k)
	assert.False(t, ok, "item > capacity should not be cached")

	// Update existing item
	c.Set(ctx, k, make([]byte, 10))
	assert.Equal(t, int64(10), c.Size())

	c.Set(ctx, k, make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())

	c.Set(ctx, k, make([]byte, 5))
	assert.Equal(t, int64(5), c.Size())

	// Update fails when the cache budget denies the growth.
	rc2 := resource.NewController(resource.Config{CacheLimitBytes: 10})
	c2 := NewLRUBlockCache(50, rc2)
	c2.Set(ctx, k, make([]byte, 8))
	c2.Set(ctx, k, make([]byte, 12)) // would need +4 over a budget of 10

	val, ok := c2.Get(ctx, k)
	assert.True(t, ok)
	assert.Len(t, val, 8, "update should have been rejected by the budget")
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRUBlockCache(100, nil)
	ctx := context.Background()
	k := Key{Kind: KindValue, Name: "hot"}
	c.Set(ctx, k, []byte{1})
	c.Get(ctx, k)                                 // hit
	c.Get(ctx, Key{Kind: KindValue, Name: "no"}) // miss

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRUBlockCache(100, nil)
	ctx := context.Background()
	c.Set(ctx, Key{DB: 1, Name: "a"}, []byte("a"))
	c.Set(ctx, Key{DB: 1, Name: "b"}, []byte("b"))
	c.Set(ctx, Key{DB: 2, Name: "a"}, []byte("c"))

	c.Invalidate(func(k Key) bool {
		return k.DB == 1
	})

	_, ok := c.Get(ctx, Key{DB: 1, Name: "a"})
	assert.False(t, ok)
	_, ok = c.Get(ctx, Key{DB: 2, Name: "a"})
	assert.True(t, ok)
}
