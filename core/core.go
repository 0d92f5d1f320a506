// Package core holds the small value types shared across the engine:
// object headers, the recency clock constants, tier location states and
// the eviction policy enum.
package core

// DBID identifies a logical database (a partition of the keyspace).
type DBID int

const (
	// LRUBits is the bit width of the recency clock stored per object.
	LRUBits = 24
	// LRUClockMax is the largest representable clock value; the clock wraps
	// back to zero past this point.
	LRUClockMax = (1 << LRUBits) - 1
	// LRUClockResolution is the clock resolution in milliseconds. One clock
	// tick corresponds to one second of wall time.
	LRUClockResolution = 1000
)

// Location tracks where an object's payload currently lives in the
// hot/cold tier pipeline.
type Location uint8

const (
	// LocationHot means the payload lives only in memory.
	LocationHot Location = iota
	// LocationFlushing means the object was chosen as a tiering candidate
	// and sits in the evict queue, not yet durable.
	LocationFlushing
	// LocationPersisted means the payload is durable in the cold store and
	// the in-memory copy may be reclaimed.
	LocationPersisted
)

// String implements fmt.Stringer.
func (l Location) String() string {
	switch l {
	case LocationHot:
		return "hot"
	case LocationFlushing:
		return "flushing"
	case LocationPersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// FreqState is the LFU access-frequency state of an object: an 8-bit
// saturating logarithmic counter plus a reduced-precision "last decay"
// timestamp in minutes (wrapping at 65536).
//
// The packed 24-bit wire form (16-bit minutes << 8 | counter) exists only
// for bit-compatibility at the storage boundary; everything in-process
// works on the named fields.
type FreqState struct {
	Counter   uint8
	LastDecay uint16
}

// Pack encodes the state into the 24-bit wire form.
func (f FreqState) Pack() uint32 {
	return uint32(f.LastDecay)<<8 | uint32(f.Counter)
}

// UnpackFreq decodes a 24-bit wire value into a FreqState.
func UnpackFreq(v uint32) FreqState {
	return FreqState{
		Counter:   uint8(v & 0xff),
		LastDecay: uint16(v >> 8),
	}
}

// Object is the in-memory header for a stored value. Recency and Freq share
// the accounting role of the original 24-bit object clock: Recency is used
// under LRU policies, Freq under LFU policies.
type Object struct {
	Data     []byte
	Recency  uint32
	Freq     FreqState
	Location Location
	// ExpireAt is the expiration time in unix milliseconds, 0 if the key
	// is not volatile.
	ExpireAt int64
}

// objectOverhead approximates the fixed per-object bookkeeping cost for
// memory accounting purposes.
const objectOverhead = 64

// MemSize returns the approximate accounted size of the object including
// the given key.
func (o *Object) MemSize(key string) int64 {
	return int64(len(key)) + int64(len(o.Data)) + objectOverhead
}

// EvictionPolicy selects how the reclamation loop chooses victims.
type EvictionPolicy uint8

const (
	// NoEviction rejects writes once the memory limit is reached.
	NoEviction EvictionPolicy = iota
	// AllkeysLRU evicts the approximately least recently used key.
	AllkeysLRU
	// VolatileLRU evicts the approximately least recently used key among
	// keys with an expiration set.
	VolatileLRU
	// AllkeysLFU evicts the approximately least frequently used key.
	AllkeysLFU
	// VolatileLFU evicts the approximately least frequently used key among
	// keys with an expiration set.
	VolatileLFU
	// AllkeysRandom evicts a uniformly random key.
	AllkeysRandom
	// VolatileRandom evicts a uniformly random key among keys with an
	// expiration set.
	VolatileRandom
	// VolatileTTL evicts the key with the nearest expiration.
	VolatileTTL
)

// String implements fmt.Stringer.
func (p EvictionPolicy) String() string {
	switch p {
	case NoEviction:
		return "no-eviction"
	case AllkeysLRU:
		return "allkeys-lru"
	case VolatileLRU:
		return "volatile-lru"
	case AllkeysLFU:
		return "allkeys-lfu"
	case VolatileLFU:
		return "volatile-lfu"
	case AllkeysRandom:
		return "allkeys-random"
	case VolatileRandom:
		return "volatile-random"
	case VolatileTTL:
		return "volatile-ttl"
	default:
		return "unknown"
	}
}

// IsLRU reports whether the policy ranks victims by recency.
func (p EvictionPolicy) IsLRU() bool { return p == AllkeysLRU || p == VolatileLRU }

// IsLFU reports whether the policy ranks victims by access frequency.
func (p EvictionPolicy) IsLFU() bool { return p == AllkeysLFU || p == VolatileLFU }

// IsVolatile reports whether the policy only considers keys with an
// expiration set.
func (p EvictionPolicy) IsVolatile() bool {
	return p == VolatileLRU || p == VolatileLFU || p == VolatileRandom || p == VolatileTTL
}

// UsesPool reports whether victim selection goes through the sampled
// eviction pool (as opposed to uniform random selection).
func (p EvictionPolicy) UsesPool() bool {
	return p.IsLRU() || p.IsLFU() || p == VolatileTTL
}
