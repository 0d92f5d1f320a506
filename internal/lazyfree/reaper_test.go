package lazyfree

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperRunsJobs(t *testing.T) {
	r := NewReaper(8, nil, nil)
	r.Start()

	var released atomic.Int64
	for i := 0; i < 5; i++ {
		r.Submit(100, func() { released.Add(100) })
	}
	r.Stop()

	assert.Equal(t, int64(500), released.Load())
	assert.Equal(t, int64(500), r.FreedBytes())
	assert.Equal(t, int64(0), r.Pending())
}

func TestReaperInlineWhenBacklogFull(t *testing.T) {
	r := NewReaper(1, nil, nil)
	// Worker not started: the second submit cannot enqueue and runs inline.
	var released atomic.Int64
	r.Submit(10, func() { released.Add(10) })
	r.Submit(20, func() { released.Add(20) })

	assert.Equal(t, int64(20), released.Load())
	assert.Equal(t, int64(1), r.Pending())

	r.Start()
	require.Eventually(t, func() bool { return r.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(30), r.FreedBytes())
	r.Stop()
}

type countingSlots struct {
	acquired atomic.Int64
	released atomic.Int64
}

func (s *countingSlots) AcquireBackground(context.Context) error {
	s.acquired.Add(1)
	return nil
}

func (s *countingSlots) ReleaseBackground() { s.released.Add(1) }

func TestReaperTakesWorkerSlot(t *testing.T) {
	slots := &countingSlots{}
	r := NewReaper(8, slots, nil)
	r.Start()

	for i := 0; i < 3; i++ {
		r.Submit(10, func() {})
	}
	r.Stop()

	assert.Equal(t, int64(3), slots.acquired.Load())
	assert.Equal(t, int64(3), slots.released.Load())
}

func TestReaperStopIdempotent(t *testing.T) {
	r := NewReaper(4, nil, nil)
	r.Start()
	r.Stop()
	assert.NotPanics(t, r.Stop)
}
