package keyspace

import (
	"fmt"
	"testing"

	"github.com/hupe1980/tierkv/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyspace_SetGetDelete(t *testing.T) {
	ks := New()

	o := &core.Object{Data: []byte("v1")}
	_, existed := ks.Set("a", o)
	assert.False(t, existed)
	assert.Equal(t, 1, ks.Len())

	got, ok := ks.Get("a")
	require.True(t, ok)
	assert.Same(t, o, got)

	o2 := &core.Object{Data: []byte("v2")}
	prev, existed := ks.Set("a", o2)
	assert.True(t, existed)
	assert.Same(t, o, prev)
	assert.Equal(t, 1, ks.Len())

	del, ok := ks.Delete("a")
	require.True(t, ok)
	assert.Same(t, o2, del)
	assert.Equal(t, 0, ks.Len())

	_, ok = ks.Delete("a")
	assert.False(t, ok)
}

func TestKeyspace_ExpiresIndex(t *testing.T) {
	ks := New()
	ks.Set("a", &core.Object{})
	ks.Set("b", &core.Object{ExpireAt: 1000})
	ks.Set("c", &core.Object{ExpireAt: 2000})

	assert.Equal(t, 3, ks.Len())
	assert.Equal(t, 2, ks.VolatileLen())

	key, ok := ks.RandomVolatileKey()
	require.True(t, ok)
	assert.Contains(t, []string{"b", "c"}, key)

	// Clearing the TTL removes the key from the volatile subset.
	require.True(t, ks.SetExpire("b", 0))
	assert.Equal(t, 1, ks.VolatileLen())

	// Deleting removes from both indexes.
	ks.Delete("c")
	assert.Equal(t, 0, ks.VolatileLen())

	assert.False(t, ks.SetExpire("missing", 500))
}

func TestKeyspace_Sampling(t *testing.T) {
	ks := New()
	for i := 0; i < 20; i++ {
		ks.Set(fmt.Sprintf("k%d", i), &core.Object{})
	}

	samples := ks.SampleKeys(5)
	require.Len(t, samples, 5)
	for _, s := range samples {
		require.NotNil(t, s.Obj)
		_, ok := ks.Get(s.Key)
		assert.True(t, ok)
	}

	// Requesting more than available caps at the keyspace size.
	assert.Len(t, ks.SampleKeys(100), 20)
	assert.Nil(t, ks.SampleKeys(0))

	empty := New()
	assert.Nil(t, empty.SampleKeys(5))
	_, ok := empty.RandomKey()
	assert.False(t, ok)
}
