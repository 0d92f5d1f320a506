// Package tiering implements the two-stage cold-data pipeline: the bounded
// FIFO evict/free queues and the batch tierer that hands candidates to the
// cold store.
package tiering

import "github.com/hupe1980/tierkv/core"

// Entry is one queued (key, object) pair.
type Entry struct {
	Key string
	Obj *core.Object
}

// Queue is a fixed-capacity FIFO ring of tiering entries. Within one
// partition it preserves strict candidacy/persistence order. Not safe for
// concurrent use; the owning database serializes access.
type Queue struct {
	buf  []Entry
	head int
	size int
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{buf: make([]Entry, capacity)}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return q.size }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Empty reports whether the queue holds no entries.
func (q *Queue) Empty() bool { return q.size == 0 }

// NearlyFull reports whether the queue is within one slot of capacity,
// the threshold at which refilling is skipped so consumers can drain.
func (q *Queue) NearlyFull() bool { return q.size >= len(q.buf)-1 }

// Push appends an entry at the tail. Returns false when full.
func (q *Queue) Push(e Entry) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = e
	q.size++
	return true
}

// PushFront re-queues an entry at the head, preserving its original order
// relative to entries behind it. Returns false when full.
func (q *Queue) PushFront(e Entry) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = e
	q.size++
	return true
}

// Pop removes and returns the head entry.
func (q *Queue) Pop() (Entry, bool) {
	if q.size == 0 {
		return Entry{}, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = Entry{} // release references
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return e, true
}
