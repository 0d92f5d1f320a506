package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_TrackRelease(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 1000})

	c.Track(600)
	assert.Equal(t, int64(600), c.MemoryUsage())
	assert.Equal(t, int64(600), c.EffectiveUsage())

	// Tracking never fails even past the limit.
	c.Track(900)
	assert.Equal(t, int64(1500), c.MemoryUsage())

	c.Release(500)
	assert.Equal(t, int64(1000), c.MemoryUsage())
}

func TestController_Overheads(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 1000})
	c.Track(900)

	c.SetReplicaOverhead(200)
	c.SetDurabilityOverhead(100)
	assert.Equal(t, int64(900), c.MemoryUsage())
	assert.Equal(t, int64(600), c.EffectiveUsage())

	// Effective usage clamps at zero.
	c.SetReplicaOverhead(2000)
	assert.Equal(t, int64(0), c.EffectiveUsage())
}

func TestController_SoftLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 1000})
	assert.Equal(t, int64(800), c.SoftLimit())

	c = NewController(Config{MemoryLimitBytes: 1000, SoftThresholdNum: 9, SoftThresholdDen: 10})
	assert.Equal(t, int64(900), c.SoftLimit())
}

func TestController_CacheSemaphore(t *testing.T) {
	c := NewController(Config{CacheLimitBytes: 100})

	assert.True(t, c.TryAcquireCache(60))
	assert.True(t, c.TryAcquireCache(40))
	assert.False(t, c.TryAcquireCache(1))
	assert.Equal(t, int64(100), c.CacheUsage())

	c.ReleaseCache(50)
	assert.True(t, c.TryAcquireCache(30))
	assert.Equal(t, int64(80), c.CacheUsage())
}

func TestController_BackgroundSlots(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 1})

	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.False(t, c.TryAcquireBackground())
	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()
}

func TestController_NilSafety(t *testing.T) {
	var c *Controller
	c.Track(10)
	c.Release(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.EffectiveUsage())
	assert.True(t, c.TryAcquireCache(10))
	assert.True(t, c.TryAcquireIO(10))
	assert.NoError(t, c.AcquireIO(context.Background(), 10))
}
