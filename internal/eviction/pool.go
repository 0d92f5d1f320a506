package eviction

import "github.com/hupe1980/tierkv/core"

const (
	// PoolSize is the fixed capacity of the eviction pool.
	PoolSize = 16
	// cachedKeySize is the per-slot reusable key buffer size. Keys at or
	// under this length are copied into the slot's buffer instead of
	// allocating; longer keys fall back to an owned allocation.
	cachedKeySize = 255
)

// Candidate is a scored eviction candidate.
type Candidate struct {
	Key   string
	Score uint64
	DB    core.DBID
}

type poolEntry struct {
	score uint64
	key   []byte // nil when the slot is empty; aliases cached for short keys
	// cached is the slot's reusable buffer. It travels with the slot during
	// shifts so every slot keeps exactly one.
	cached []byte
	db     core.DBID
}

// Pool is the bounded, ordered buffer of eviction candidates. Occupied
// slots are contiguous from index 0 with scores in non-decreasing order,
// so the best candidate is the rightmost occupied slot.
//
// Entries may reference keys that no longer exist; callers skip those and
// re-populate. The pool is not safe for concurrent use.
type Pool struct {
	entries [PoolSize]poolEntry
}

// NewPool creates an empty pool with pre-allocated key buffers.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.entries {
		p.entries[i].cached = make([]byte, 0, cachedKeySize)
	}
	return p
}

// Len returns the number of occupied slots.
func (p *Pool) Len() int {
	n := 0
	for i := range p.entries {
		if p.entries[i].key != nil {
			n++
		}
	}
	return n
}

// Add offers one scored candidate to the pool. A candidate whose score is
// not greater than the current minimum is rejected when the pool is full;
// otherwise entries shift to keep ascending order, dropping the leftmost
// (lowest-score) entry if necessary. Equal scores insert left of the first
// equal entry, keeping earlier entries to the left.
func (p *Pool) Add(c Candidate) bool {
	k := 0
	for k < PoolSize && p.entries[k].key != nil && p.entries[k].score < c.Score {
		k++
	}

	switch {
	case k == 0 && p.entries[PoolSize-1].key != nil:
		// Worse than the worst entry of a full pool.
		return false
	case k < PoolSize && p.entries[k].key == nil:
		// Free slot at the insertion point.
	case p.entries[PoolSize-1].key == nil:
		// Free space on the right: shift k..end-1 right by one, keeping the
		// displaced slot's buffer attached to slot k.
		cached := p.entries[PoolSize-1].cached
		copy(p.entries[k+1:], p.entries[k:PoolSize-1])
		p.entries[k].cached = cached
	default:
		// Full on the right: discard the leftmost entry and shift 0..k-1
		// left by one.
		k--
		cached := p.entries[0].cached
		copy(p.entries[:k], p.entries[1:k+1])
		p.entries[k].cached = cached
	}

	if len(c.Key) > cachedKeySize {
		p.entries[k].key = []byte(c.Key)
	} else {
		p.entries[k].cached = append(p.entries[k].cached[:0], c.Key...)
		p.entries[k].key = p.entries[k].cached
	}
	p.entries[k].score = c.Score
	p.entries[k].db = c.DB
	return true
}

// TakeBest removes and returns the highest-score candidate. ok is false
// when the pool is empty.
func (p *Pool) TakeBest() (Candidate, bool) {
	for i := PoolSize - 1; i >= 0; i-- {
		if p.entries[i].key == nil {
			continue
		}
		c := Candidate{
			Key:   string(p.entries[i].key),
			Score: p.entries[i].score,
			DB:    p.entries[i].db,
		}
		p.remove(i)
		return c, true
	}
	return Candidate{}, false
}

// At returns the candidate at slot i for inspection; ok is false for empty
// slots. Used by tests to verify ordering.
func (p *Pool) At(i int) (Candidate, bool) {
	if i < 0 || i >= PoolSize || p.entries[i].key == nil {
		return Candidate{}, false
	}
	return Candidate{
		Key:   string(p.entries[i].key),
		Score: p.entries[i].score,
		DB:    p.entries[i].db,
	}, true
}

// Reset empties the pool, keeping slot buffers for reuse.
func (p *Pool) Reset() {
	for i := range p.entries {
		p.entries[i].key = nil
		p.entries[i].score = 0
		p.entries[i].db = 0
	}
}

// remove deletes slot i and compacts the occupied prefix.
func (p *Pool) remove(i int) {
	cached := p.entries[i].cached
	copy(p.entries[i:], p.entries[i+1:])
	last := &p.entries[PoolSize-1]
	last.key = nil
	last.score = 0
	last.db = 0
	last.cached = cached
}
