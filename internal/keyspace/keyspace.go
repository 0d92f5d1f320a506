// Package keyspace implements the per-database key dictionary with O(1)
// random sampling, plus the expires index used by volatile eviction
// policies.
package keyspace

import (
	"math/rand/v2"

	"github.com/hupe1980/tierkv/core"
)

// Sample is one randomly sampled key with its object.
type Sample struct {
	Key string
	Obj *core.Object
}

// Keyspace holds the objects of one logical database. It keeps a dense key
// slice alongside the map so uniform random sampling is O(1) per key,
// mirroring dictGetRandomKey/dictGetSomeKeys semantics.
//
// Not safe for concurrent use; the owning database serializes access.
type Keyspace struct {
	objects map[string]*core.Object
	keys    []string
	pos     map[string]int

	// expires indexes the volatile subset for volatile-* sampling.
	expKeys []string
	expPos  map[string]int
}

// New creates an empty keyspace.
func New() *Keyspace {
	return &Keyspace{
		objects: make(map[string]*core.Object),
		pos:     make(map[string]int),
		expPos:  make(map[string]int),
	}
}

// Len returns the number of keys.
func (ks *Keyspace) Len() int { return len(ks.keys) }

// VolatileLen returns the number of keys with an expiration set.
func (ks *Keyspace) VolatileLen() int { return len(ks.expKeys) }

// Get returns the object for key.
func (ks *Keyspace) Get(key string) (*core.Object, bool) {
	o, ok := ks.objects[key]
	return o, ok
}

// Set inserts or replaces the object for key, returning the previous
// object if one existed.
func (ks *Keyspace) Set(key string, o *core.Object) (*core.Object, bool) {
	prev, existed := ks.objects[key]
	ks.objects[key] = o
	if !existed {
		ks.pos[key] = len(ks.keys)
		ks.keys = append(ks.keys, key)
	}
	if o.ExpireAt != 0 {
		ks.addExpire(key)
	} else if existed {
		ks.removeExpire(key)
	}
	return prev, existed
}

// SetExpire marks the key volatile with the given expiration time, or
// clears it when expireAt is zero. Reports whether the key exists.
func (ks *Keyspace) SetExpire(key string, expireAt int64) bool {
	o, ok := ks.objects[key]
	if !ok {
		return false
	}
	o.ExpireAt = expireAt
	if expireAt != 0 {
		ks.addExpire(key)
	} else {
		ks.removeExpire(key)
	}
	return true
}

// Delete removes the key, returning its object.
func (ks *Keyspace) Delete(key string) (*core.Object, bool) {
	o, ok := ks.objects[key]
	if !ok {
		return nil, false
	}
	delete(ks.objects, key)
	ks.removeFromIndex(key)
	ks.removeExpire(key)
	return o, true
}

// RandomKey returns a uniformly random key.
func (ks *Keyspace) RandomKey() (string, bool) {
	if len(ks.keys) == 0 {
		return "", false
	}
	return ks.keys[rand.IntN(len(ks.keys))], true
}

// RandomVolatileKey returns a uniformly random key with an expiration set.
func (ks *Keyspace) RandomVolatileKey() (string, bool) {
	if len(ks.expKeys) == 0 {
		return "", false
	}
	return ks.expKeys[rand.IntN(len(ks.expKeys))], true
}

// SampleKeys returns up to n random samples from the whole keyspace. Like
// the original's dictGetSomeKeys, the samples are taken from a random
// starting point and may be fewer than requested; they are not guaranteed
// distinct across calls.
func (ks *Keyspace) SampleKeys(n int) []Sample {
	return ks.sample(ks.keys, n)
}

// SampleVolatileKeys returns up to n random samples from the volatile
// subset.
func (ks *Keyspace) SampleVolatileKeys(n int) []Sample {
	return ks.sample(ks.expKeys, n)
}

func (ks *Keyspace) sample(from []string, n int) []Sample {
	if len(from) == 0 || n <= 0 {
		return nil
	}
	if n > len(from) {
		n = len(from)
	}
	out := make([]Sample, 0, n)
	start := rand.IntN(len(from))
	for i := 0; i < n; i++ {
		key := from[(start+i)%len(from)]
		out = append(out, Sample{Key: key, Obj: ks.objects[key]})
	}
	return out
}

// Keys returns a snapshot of all keys. Used by tests and diagnostics.
func (ks *Keyspace) Keys() []string {
	out := make([]string, len(ks.keys))
	copy(out, ks.keys)
	return out
}

func (ks *Keyspace) addExpire(key string) {
	if _, ok := ks.expPos[key]; ok {
		return
	}
	ks.expPos[key] = len(ks.expKeys)
	ks.expKeys = append(ks.expKeys, key)
}

func (ks *Keyspace) removeExpire(key string) {
	i, ok := ks.expPos[key]
	if !ok {
		return
	}
	last := len(ks.expKeys) - 1
	if i != last {
		moved := ks.expKeys[last]
		ks.expKeys[i] = moved
		ks.expPos[moved] = i
	}
	ks.expKeys = ks.expKeys[:last]
	delete(ks.expPos, key)
}

func (ks *Keyspace) removeFromIndex(key string) {
	i, ok := ks.pos[key]
	if !ok {
		return
	}
	last := len(ks.keys) - 1
	if i != last {
		moved := ks.keys[last]
		ks.keys[i] = moved
		ks.pos[moved] = i
	}
	ks.keys = ks.keys[:last]
	delete(ks.pos, key)
}
