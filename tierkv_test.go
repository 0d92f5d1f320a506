package tierkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tierkv/core"
)

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("SetGetDelete", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "user:1", []byte("alice")))

		got, err := kv.Get(ctx, 0, "user:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("alice"), got)

		_, err = kv.Get(ctx, 0, "user:2")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, kv.Delete(ctx, 0, "user:1"))
		_, err = kv.Get(ctx, 0, "user:1")
		assert.ErrorIs(t, err, ErrNotFound)

		// Idempotent.
		assert.NoError(t, kv.Delete(ctx, 0, "user:1"))
	})

	t.Run("Overwrite", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "k", []byte("v1")))
		require.NoError(t, kv.Set(ctx, 0, "k", []byte("v2")))

		got, err := kv.Get(ctx, 0, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("DatabasesAreIsolated", func(t *testing.T) {
		kv, err := New(WithNumDBs(2))
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "k", []byte("zero")))
		require.NoError(t, kv.Set(ctx, 1, "k", []byte("one")))

		got, err := kv.Get(ctx, 0, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("zero"), got)

		got, err = kv.Get(ctx, 1, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), got)

		assert.Equal(t, 2, kv.NumDBs())
	})

	t.Run("InvalidDB", func(t *testing.T) {
		kv, err := New(WithNumDBs(2))
		require.NoError(t, err)
		defer kv.Close()

		assert.ErrorIs(t, kv.Set(ctx, 2, "k", nil), ErrInvalidDB)
		_, err = kv.Get(ctx, -1, "k")
		assert.ErrorIs(t, err, ErrInvalidDB)
	})

	t.Run("Expire", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "tmp", []byte("v")))
		require.NoError(t, kv.Expire(ctx, 0, "tmp", time.Millisecond))

		time.Sleep(5 * time.Millisecond)
		_, err = kv.Get(ctx, 0, "tmp")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, kv.Expire(ctx, 0, "missing", time.Hour), ErrNotFound)
	})

	t.Run("ExpireCleared", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "keep", []byte("v")))
		require.NoError(t, kv.Expire(ctx, 0, "keep", 10*time.Millisecond))
		require.NoError(t, kv.Expire(ctx, 0, "keep", 0)) // make it non-volatile again

		time.Sleep(20 * time.Millisecond)
		got, err := kv.Get(ctx, 0, "keep")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("Stats", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "a", []byte("1")))
		require.NoError(t, kv.Set(ctx, 0, "b", []byte("2")))
		require.NoError(t, kv.Expire(ctx, 0, "b", time.Hour))

		s := kv.Stats()
		assert.Equal(t, 2, s.Keys)
		assert.Equal(t, 1, s.VolatileKeys)
		assert.Positive(t, s.MemoryUsed)
		assert.Zero(t, s.MemoryLimit)
	})

	t.Run("Close", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)

		require.NoError(t, kv.Close())
		require.NoError(t, kv.Close()) // idempotent

		assert.ErrorIs(t, kv.Set(ctx, 0, "k", nil), ErrClosed)
		_, err = kv.Get(ctx, 0, "k")
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, kv.Delete(ctx, 0, "k"), ErrClosed)
	})

	t.Run("TouchUpdatesFrequency", func(t *testing.T) {
		kv, err := New(WithEvictionPolicy(core.AllkeysLFU), WithLFULogFactor(0.001))
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.Set(ctx, 0, "hot", []byte("v")))
		for range 50 {
			_, err := kv.Get(ctx, 0, "hot")
			require.NoError(t, err)
		}

		d := kv.dbs[0]
		d.mu.Lock()
		obj, ok := d.ks.Get("hot")
		d.mu.Unlock()
		require.True(t, ok)
		assert.Greater(t, obj.Freq.Counter, uint8(5))
	})
}
