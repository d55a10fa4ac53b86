package recovery

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/snapshot"
)

const (
	CacheStrategyPriority = 2
	cacheCooldown         = 5 * time.Minute
)

// Clearable is a cache that can be emptied synchronously.
type Clearable interface {
	Clear() error
}

// ContextClearable is a cache that performs a full teardown and is preferred
// over Clearable when a collaborator implements both.
type ContextClearable interface {
	ClearAll(ctx context.Context) error
}

// Cache is a registered cache manager with its clear operation resolved at
// registration time, not probed on every execution.
type Cache struct {
	Name  string
	clear func(ctx context.Context) error
}

// WrapCache adapts a collaborator to a Cache. Collaborators exposing
// ClearAll are preferred over plain Clear.
func WrapCache(name string, v any) (Cache, error) {
	switch c := v.(type) {
	case ContextClearable:
		return Cache{Name: name, clear: c.ClearAll}, nil
	case Clearable:
		return Cache{Name: name, clear: func(context.Context) error { return c.Clear() }}, nil
	default:
		return Cache{}, fmt.Errorf("cache %q implements neither ContextClearable nor Clearable", name)
	}
}

// CacheClearingStrategy empties registered application caches under
// sustained pressure. More invasive than a GC pass, so it only applies from
// High upward and throttles itself to one run per five minutes.
type CacheClearingStrategy struct {
	caches []Cache
	prober snapshot.Prober

	mu      sync.Mutex
	lastRun time.Time
	now     func() time.Time
}

func NewCacheClearingStrategy(prober snapshot.Prober, caches ...Cache) *CacheClearingStrategy {
	return &CacheClearingStrategy{
		caches: caches,
		prober: prober,
		now:    time.Now,
	}
}

func (s *CacheClearingStrategy) Name() string { return "cache_clearing" }

func (s *CacheClearingStrategy) Priority() int { return CacheStrategyPriority }

func (s *CacheClearingStrategy) CanApply(snap snapshot.Snapshot) bool {
	if snap.Level < pressure.High {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun.IsZero() || s.now().Sub(s.lastRun) >= cacheCooldown
}

func (s *CacheClearingStrategy) Execute(ctx context.Context, snap snapshot.Snapshot) Outcome {
	start := s.now()
	s.mu.Lock()
	s.lastRun = start
	s.mu.Unlock()

	out := Outcome{Action: ActionClearCaches}

	procBefore, probeErr := s.prober.ProcessMemory()

	for _, cache := range s.caches {
		if err := cache.clear(ctx); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("cache %s: %v", cache.Name, err))
			continue
		}
		out.CachesCleared++
	}

	// Best effort: hand freed spans back to the OS so the clearing shows up
	// in the next RSS reading.
	debug.FreeOSMemory()

	if probeErr == nil {
		if procAfter, err := s.prober.ProcessMemory(); err == nil {
			out.MemoryFreedMB = procBefore.RSSMB - procAfter.RSSMB
		}
	}

	out.Duration = s.now().Sub(start)
	return out
}
