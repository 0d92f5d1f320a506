package eviction

import (
	"math/rand/v2"
	"time"

	"github.com/hupe1980/tierkv/core"
)

const (
	// CounterInit is the counter value assigned to new objects, giving them
	// a grace period of accesses before they rank as evictable.
	CounterInit = 5
	// CounterMax is the saturation point of the 8-bit counter.
	CounterMax = 255
)

// LFU implements the probabilistic logarithmic frequency counter and its
// periodic decay.
type LFU struct {
	// LogFactor controls how quickly increments become unlikely as the
	// counter grows.
	LogFactor float64
	// DecayMinutes is the elapsed time after which a counter decays once.
	DecayMinutes int

	now  func() time.Time
	rand func() float64
}

// NewLFU creates an LFU with the given tuning parameters.
func NewLFU(logFactor float64, decayMinutes int) *LFU {
	return &LFU{
		LogFactor:    logFactor,
		DecayMinutes: decayMinutes,
		now:          time.Now,
		rand:         rand.Float64,
	}
}

// NewLFUDeterministic creates an LFU with injected time and randomness
// sources for tests.
func NewLFUDeterministic(logFactor float64, decayMinutes int, now func() time.Time, random func() float64) *LFU {
	return &LFU{
		LogFactor:    logFactor,
		DecayMinutes: decayMinutes,
		now:          now,
		rand:         random,
	}
}

// Minutes returns the current time in minutes, truncated to 16 bits.
// Wrapping is fine: Elapsed assumes at most one wrap.
func (l *LFU) Minutes() uint16 {
	return uint16((l.now().Unix() / 60) & 0xffff)
}

// Elapsed returns the minimum number of minutes since the given last-decay
// timestamp, treating a smaller current time as a single wrap.
func (l *LFU) Elapsed(lastDecay uint16) uint16 {
	now := l.Minutes()
	if now >= lastDecay {
		return now - lastDecay
	}
	return 0xffff - lastDecay + now
}

// Increment bumps the counter probabilistically: the higher the counter,
// the less likely the increment. Saturates at CounterMax.
func (l *LFU) Increment(counter uint8) uint8 {
	if counter == CounterMax {
		return CounterMax
	}
	base := float64(counter) - CounterInit
	if base < 0 {
		base = 0
	}
	p := 1.0 / (base*l.LogFactor + 1)
	if l.rand() < p {
		counter++
	}
	return counter
}

// DecayAndReturn applies at most one decay step to the frequency state if
// the decay interval elapsed, then returns the (possibly decayed) counter.
// The last-decay timestamp is only advanced when a decay actually occurred.
func (l *LFU) DecayAndReturn(f *core.FreqState) uint8 {
	if l.DecayMinutes > 0 && f.Counter > 0 && int(l.Elapsed(f.LastDecay)) >= l.DecayMinutes {
		if f.Counter > CounterInit*2 {
			f.Counter /= 2
			if f.Counter < CounterInit*2 {
				f.Counter = CounterInit * 2
			}
		} else {
			f.Counter--
		}
		f.LastDecay = l.Minutes()
	}
	return f.Counter
}

// Touch returns a fresh frequency state for a newly created object.
func (l *LFU) Touch() core.FreqState {
	return core.FreqState{Counter: CounterInit, LastDecay: l.Minutes()}
}
