package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreqStatePackRoundTrip(t *testing.T) {
	cases := []FreqState{
		{},
		{Counter: 5, LastDecay: 0},
		{Counter: 255, LastDecay: 65535},
		{Counter: 42, LastDecay: 60000},
	}
	for _, f := range cases {
		packed := f.Pack()
		assert.LessOrEqual(t, packed, uint32(1<<24-1))
		assert.Equal(t, f, UnpackFreq(packed))
	}
}

func TestObjectMemSize(t *testing.T) {
	o := &Object{Data: make([]byte, 100)}
	assert.Equal(t, int64(3+100+64), o.MemSize("key"))
}

func TestPolicyPredicates(t *testing.T) {
	assert.True(t, AllkeysLRU.IsLRU())
	assert.True(t, VolatileLFU.IsLFU())
	assert.True(t, VolatileTTL.IsVolatile())
	assert.True(t, VolatileTTL.UsesPool())
	assert.False(t, AllkeysRandom.UsesPool())
	assert.False(t, NoEviction.IsVolatile())
	assert.Equal(t, "allkeys-lfu", AllkeysLFU.String())
	assert.Equal(t, "persisted", LocationPersisted.String())
}
