package recovery

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/snapshot"
)

const (
	GCStrategyPriority = 1
	gcCooldown         = 30 * time.Second
)

// GCStrategy forces a garbage collection cycle. It is the cheapest and
// safest recovery action and applies at any pressure above Low. The
// aggressive variant additionally returns freed spans to the OS.
//
// Two instances (plain and aggressive) may be registered at the same
// priority; each keeps its own cooldown clock.
type GCStrategy struct {
	aggressive bool
	prober     snapshot.Prober

	mu      sync.Mutex
	lastRun time.Time
	now     func() time.Time
}

func NewGCStrategy(prober snapshot.Prober, aggressive bool) *GCStrategy {
	return &GCStrategy{
		aggressive: aggressive,
		prober:     prober,
		now:        time.Now,
	}
}

func (s *GCStrategy) Name() string {
	if s.aggressive {
		return "gc_aggressive"
	}
	return "gc"
}

func (s *GCStrategy) Priority() int { return GCStrategyPriority }

// CanApply throttles independently of the monitor: at most one forced
// collection per cooldown window, regardless of how often the monitor asks.
func (s *GCStrategy) CanApply(snap snapshot.Snapshot) bool {
	if snap.Level == pressure.Low {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun.IsZero() || s.now().Sub(s.lastRun) >= gcCooldown
}

func (s *GCStrategy) Execute(ctx context.Context, snap snapshot.Snapshot) Outcome {
	start := s.now()
	s.mu.Lock()
	s.lastRun = start
	s.mu.Unlock()

	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	procBefore, probeErr := s.prober.ProcessMemory()

	runtime.GC()
	if s.aggressive {
		debug.FreeOSMemory()
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	out := Outcome{
		Action:           ActionGarbageCollect,
		ObjectsCollected: int64(before.HeapObjects) - int64(after.HeapObjects),
		GCCyclesBefore:   before.NumGC,
		GCCyclesAfter:    after.NumGC,
		Duration:         s.now().Sub(start),
	}

	// Freed memory may be negative when allocation outpaces the collection.
	// That is expected, not an error. When introspection is unavailable the
	// metric degrades to 0.0 instead of failing the strategy.
	if probeErr == nil {
		if procAfter, err := s.prober.ProcessMemory(); err == nil {
			out.MemoryFreedMB = procBefore.RSSMB - procAfter.RSSMB
		}
	}

	return out
}
