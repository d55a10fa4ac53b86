package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/snapshot"
)

const PoolStrategyPriority = 3

// ResizablePool is the narrow surface a connection pool must expose for
// capacity reduction. Implementations are expected to be pointer types so
// they can serve as map keys for original-size tracking.
type ResizablePool interface {
	MaxSize() int
	SetMaxSize(n int)
}

// CleanupPool lets a pool proactively close connections above a lowered cap.
type CleanupPool interface {
	Cleanup(ctx context.Context) error
}

// PoolReductionStrategy halves the capacity of registered connection pools.
// Reducing capacity hurts throughput, so this is a last resort: it applies
// only at Critical and Emergency pressure.
type PoolReductionStrategy struct {
	pools []ResizablePool

	mu        sync.Mutex
	originals map[ResizablePool]int
	now       func() time.Time
}

func NewPoolReductionStrategy(pools ...ResizablePool) *PoolReductionStrategy {
	return &PoolReductionStrategy{
		pools:     pools,
		originals: make(map[ResizablePool]int),
		now:       time.Now,
	}
}

func (s *PoolReductionStrategy) Name() string { return "pool_reduction" }

func (s *PoolReductionStrategy) Priority() int { return PoolStrategyPriority }

func (s *PoolReductionStrategy) CanApply(snap snapshot.Snapshot) bool {
	return snap.Level >= pressure.Critical
}

func (s *PoolReductionStrategy) Execute(ctx context.Context, snap snapshot.Snapshot) Outcome {
	start := s.now()
	out := Outcome{Action: ActionReduceConnections}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, pool := range s.pools {
		// Remember the pre-reduction size exactly once per pool, so a
		// repeated pass recomputes from the original instead of ratcheting
		// the pool down further each cycle.
		original, seen := s.originals[pool]
		if !seen {
			original = pool.MaxSize()
			s.originals[pool] = original
		}

		reduced := original / 2
		if reduced < 1 {
			reduced = 1
		}
		pool.SetMaxSize(reduced)
		out.PoolsReduced++

		if c, ok := pool.(CleanupPool); ok {
			if err := c.Cleanup(ctx); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("pool %d: cleanup: %v", i, err))
			}
		}
	}

	out.Duration = s.now().Sub(start)
	return out
}

// RestoreOriginalSizes puts every reduced pool back to its pre-reduction
// capacity and forgets the stored originals. The monitor never calls this,
// it is a manual operator step for once pressure has subsided.
func (s *PoolReductionStrategy) RestoreOriginalSizes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for pool, original := range s.originals {
		pool.SetMaxSize(original)
		restored++
	}
	s.originals = make(map[ResizablePool]int)
	return restored
}
