package eviction

import (
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/tierkv/core"
)

// Scorer computes a monotonically comparable "badness" score for an object
// under the configured policy. Higher means more evictable.
type Scorer struct {
	Clock *Clock
	LFU   *LFU
}

// Score returns the eviction score of the object under the given policy.
// LFU scoring applies decay as a side effect, mirroring the incremental
// decay the original performs while scanning candidates.
func (s *Scorer) Score(o *core.Object, policy core.EvictionPolicy) (uint64, error) {
	switch {
	case policy.IsLRU():
		return s.Clock.EstimateIdle(o.Recency), nil
	case policy.IsLFU():
		return uint64(CounterMax - s.LFU.DecayAndReturn(&o.Freq)), nil
	case policy == core.VolatileTTL:
		remaining := o.ExpireAt - time.Now().UnixMilli()
		if remaining < 0 {
			remaining = 0
		}
		return math.MaxUint64 - uint64(remaining), nil
	default:
		return 0, fmt.Errorf("eviction: policy %s does not use scored candidates", policy)
	}
}
