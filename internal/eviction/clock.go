// Package eviction implements the approximate-LRU/LFU machinery: the
// reduced-resolution recency clock, the probabilistic frequency counter and
// the bounded sampled eviction pool.
package eviction

import (
	"time"

	"github.com/hupe1980/tierkv/core"
)

// Clock produces the reduced-bits recency clock stored in object headers.
// The zero value is not usable; construct with NewClock.
type Clock struct {
	now func() time.Time
}

// NewClock creates a wall-clock backed Clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a Clock backed by the given time source. Used by tests
// to exercise wraparound.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Value returns the current clock value in the valid clock range.
func (c *Clock) Value() uint32 {
	ms := c.now().UnixMilli()
	return uint32(ms/core.LRUClockResolution) & core.LRUClockMax
}

// EstimateIdle returns the minimum number of milliseconds since the object
// was last touched, given its stored recency value. The clock has limited
// bit width, so a current value smaller than the stored one means the clock
// wrapped exactly once and a full period is added back.
func (c *Clock) EstimateIdle(recency uint32) uint64 {
	now := c.Value()
	if now >= recency {
		return uint64(now-recency) * core.LRUClockResolution
	}
	return uint64(now+(core.LRUClockMax-recency)) * core.LRUClockResolution
}
