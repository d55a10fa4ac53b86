package recovery

import (
	"context"
	"time"

	"github.com/memwarden/agent/pkg/snapshot"
)

// Action identifies which kind of strategy produced an outcome.
type Action string

const (
	ActionGarbageCollect    Action = "garbage_collect"
	ActionClearCaches       Action = "clear_caches"
	ActionReduceConnections Action = "reduce_connections"
	// Reserved for future strategies.
	ActionPauseNonCritical  Action = "pause_non_critical"
	ActionEmergencyShutdown Action = "emergency_shutdown"
)

// Outcome is the result of one strategy execution. Per-resource failures are
// collected in Errors; an outcome carrying errors still counts as executed,
// one failing cache or pool does not abort its siblings.
type Outcome struct {
	Action           Action        `json:"action"`
	ObjectsCollected int64         `json:"objects_collected,omitempty"`
	MemoryFreedMB    float64       `json:"memory_freed_mb"`
	CachesCleared    int           `json:"caches_cleared,omitempty"`
	PoolsReduced     int           `json:"pools_reduced,omitempty"`
	GCCyclesBefore   uint32        `json:"gc_cycles_before,omitempty"`
	GCCyclesAfter    uint32        `json:"gc_cycles_after,omitempty"`
	Duration         time.Duration `json:"duration"`
	Errors           []string      `json:"errors,omitempty"`
}

// Strategy is a single recovery action. Strategies decide their own
// applicability (pressure gating plus any self-imposed cooldown) and are
// executed by the monitor in ascending priority order, lowest first.
//
// Execute is total: it always returns an outcome and reports per-resource
// failures inside it rather than propagating them.
type Strategy interface {
	Name() string
	Priority() int
	CanApply(snap snapshot.Snapshot) bool
	Execute(ctx context.Context, snap snapshot.Snapshot) Outcome
}
