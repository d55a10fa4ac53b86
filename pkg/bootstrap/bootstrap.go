package bootstrap

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/memwarden/agent/pkg/monitor"
	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/recovery"
	"github.com/memwarden/agent/pkg/snapshot"
)

// Dependencies are the external collaborators the default strategies act on.
// Both lists may be empty; the GC strategies work without collaborators.
type Dependencies struct {
	Caches []recovery.Cache
	Pools  []recovery.ResizablePool
}

// NewMonitor builds a monitor with the default strategy set: plain GC,
// aggressive GC, cache clearing, pool reduction, registered in that order.
// The two GC variants share a priority value; the monitor's stable sort
// keeps plain GC ahead of aggressive GC.
//
// The monitor is a plain dependency-injected instance owned by the caller;
// there is no process-wide singleton.
func NewMonitor(cfg monitor.Config, thresholds pressure.Thresholds, deps Dependencies, logger *log.Logger) *monitor.Monitor {
	prober := snapshot.NewSystemProber()
	m := monitor.New(cfg, thresholds, prober, logger)

	m.AddStrategy(recovery.NewGCStrategy(prober, false))
	m.AddStrategy(recovery.NewGCStrategy(prober, true))
	m.AddStrategy(recovery.NewCacheClearingStrategy(prober, deps.Caches...))
	m.AddStrategy(recovery.NewPoolReductionStrategy(deps.Pools...))

	return m
}

// SetupMemoryRecovery builds a monitor with the default strategies and
// starts its background loop.
func SetupMemoryRecovery(cfg monitor.Config, thresholds pressure.Thresholds, deps Dependencies, logger *log.Logger) *monitor.Monitor {
	m := NewMonitor(cfg, thresholds, deps, logger)
	m.Start(cfg.CheckInterval)
	return m
}

// EmergencyMemoryRecovery forces a recovery pass at Emergency level,
// bypassing the measured pressure. Intended for manually triggered crisis
// response, e.g. from an external alert. The global recovery throttle still
// applies.
func EmergencyMemoryRecovery(ctx context.Context, m *monitor.Monitor) []recovery.Outcome {
	m.Logger().Error("🚨 Emergency memory recovery triggered")

	snap := m.TakeSnapshot()
	snap.Level = pressure.Emergency
	return m.CheckAndRecover(ctx, snap)
}
