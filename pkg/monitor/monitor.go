package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/memwarden/agent/pkg/events"
	"github.com/memwarden/agent/pkg/metrics"
	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/recovery"
	"github.com/memwarden/agent/pkg/snapshot"
)

const eventBufferSize = 64

// Monitor owns the snapshot history, the recovery history and the strategy
// list. A background loop periodically snapshots memory state, classifies
// pressure and runs applicable strategies in ascending priority order.
type Monitor struct {
	thresholds pressure.Thresholds
	prober     snapshot.Prober
	logger     *log.Logger

	mu                 sync.Mutex
	strategies         []recovery.Strategy
	snapshots          []snapshot.Snapshot
	maxSnapshots       int
	recoveryHistory    []recovery.Outcome
	maxRecoveryHistory int
	lastRecovery       time.Time
	recoveryInterval   time.Duration

	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	events chan events.Event
	now    func() time.Time
}

// New builds a Monitor from a validated config. Strategies are registered
// separately through AddStrategy.
func New(cfg Config, thresholds pressure.Thresholds, prober snapshot.Prober, logger *log.Logger) *Monitor {
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = MAX_SNAPSHOTS_DEFAULT
	}
	if cfg.MaxRecoveryHistory <= 0 {
		cfg.MaxRecoveryHistory = MAX_RECOVERY_HISTORY_DEFAULT
	}
	if cfg.RecoveryInterval <= 0 {
		cfg.RecoveryInterval = RECOVERY_INTERVAL_DEFAULT
	}
	return &Monitor{
		thresholds:         thresholds,
		prober:             prober,
		logger:             logger,
		maxSnapshots:       cfg.MaxSnapshots,
		maxRecoveryHistory: cfg.MaxRecoveryHistory,
		recoveryInterval:   cfg.RecoveryInterval,
		events:             make(chan events.Event, eventBufferSize),
		now:                time.Now,
	}
}

// Thresholds returns the pressure boundaries this monitor classifies with.
func (m *Monitor) Thresholds() pressure.Thresholds {
	return m.thresholds
}

// Logger returns the monitor's logger.
func (m *Monitor) Logger() *log.Logger {
	return m.logger
}

// Events exposes the monitor's event stream for sinks. Events are dropped
// when no consumer keeps up; the monitoring loop never blocks on a slow sink.
func (m *Monitor) Events() <-chan events.Event {
	return m.events
}

// AddStrategy registers a recovery strategy and re-sorts the list by
// priority. The sort is stable: strategies sharing a priority value keep
// their registration order. Registration happens at startup, so the
// per-addition sort cost is irrelevant.
func (m *Monitor) AddStrategy(s recovery.Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies = append(m.strategies, s)
	sort.SliceStable(m.strategies, func(i, j int) bool {
		return m.strategies[i].Priority() < m.strategies[j].Priority()
	})
}

// TakeSnapshot records and returns the current memory state. It never
// fails: degraded introspection falls back to fixed defaults inside
// snapshot.Take.
func (m *Monitor) TakeSnapshot() snapshot.Snapshot {
	snap := snapshot.Take(m.prober, m.thresholds, m.now())
	metrics.ObserveSnapshot(snap)

	m.mu.Lock()
	m.snapshots = append(m.snapshots, snap)
	if len(m.snapshots) > m.maxSnapshots {
		// Batch-trim to half the bound instead of shifting one element on
		// every call once the bound is reached.
		keep := m.maxSnapshots / 2
		m.snapshots = append(m.snapshots[:0:0], m.snapshots[len(m.snapshots)-keep:]...)
	}
	m.mu.Unlock()

	return snap
}

// CheckAndRecover runs one recovery pass for the given snapshot. It returns
// the outcomes of the strategies that executed, nil when nothing applied.
//
// A pass is skipped entirely below Moderate pressure and while the global
// throttle window since the previous pass is still open, so recovery storms
// cannot happen even with a misconfigured tick interval.
func (m *Monitor) CheckAndRecover(ctx context.Context, snap snapshot.Snapshot) []recovery.Outcome {
	if snap.Level == pressure.Low {
		return nil
	}

	m.mu.Lock()
	throttled := !m.lastRecovery.IsZero() && m.now().Sub(m.lastRecovery) < m.recoveryInterval
	strategies := append([]recovery.Strategy(nil), m.strategies...)
	m.mu.Unlock()

	if throttled {
		m.logger.Debugf("Recovery throttled, last attempt less than %s ago", m.recoveryInterval)
		return nil
	}

	m.logger.Warnf("Memory pressure %s at %.1f%% used, starting recovery pass", snap.Level, snap.PercentUsed)

	var outcomes []recovery.Outcome
	for _, strat := range strategies {
		applied, outcome := m.runStrategy(ctx, strat, snap)
		if !applied {
			continue
		}
		outcomes = append(outcomes, outcome)
		metrics.ObserveOutcome(outcome)

		// Observe the strategy's effect before deciding whether to continue
		// to the next, more invasive one.
		latest := m.TakeSnapshot()
		if latest.Level < snap.Level {
			m.logger.Infof("Pressure eased to %s after %s, stopping recovery pass", latest.Level, strat.Name())
			break
		}
	}

	m.mu.Lock()
	m.lastRecovery = m.now()
	m.recoveryHistory = append(m.recoveryHistory, outcomes...)
	if len(m.recoveryHistory) > m.maxRecoveryHistory {
		keep := m.maxRecoveryHistory / 2
		m.recoveryHistory = append(m.recoveryHistory[:0:0], m.recoveryHistory[len(m.recoveryHistory)-keep:]...)
	}
	m.mu.Unlock()

	if len(outcomes) > 0 {
		m.publish(events.NewRecoveryEvent(snap, outcomes))
	}

	return outcomes
}

// runStrategy isolates a single strategy so that a panicking CanApply or
// Execute cannot abort the rest of the pass.
func (m *Monitor) runStrategy(ctx context.Context, strat recovery.Strategy, snap snapshot.Snapshot) (applied bool, out recovery.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("Strategy %s panicked: %v", strat.Name(), r)
			applied = false
		}
	}()

	if !strat.CanApply(snap) {
		return false, recovery.Outcome{}
	}

	out = strat.Execute(ctx, snap)
	if len(out.Errors) > 0 {
		m.logger.Errorf("Strategy %s finished with %d errors: %v", strat.Name(), len(out.Errors), out.Errors)
	} else {
		m.logger.Infof("Strategy %s freed %.1f MB in %s", strat.Name(), out.MemoryFreedMB, out.Duration)
	}
	return true, out
}

// Start launches the background monitoring loop. Starting an already
// running monitor is a no-op.
func (m *Monitor) Start(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.logger.Debug("Monitor already running")
		return
	}
	if interval <= 0 {
		interval = CHECK_INTERVAL_DEFAULT
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.loop(ctx, interval)
	m.logger.Infof("Memory monitoring started, interval %s", interval)
}

// Stop cancels the loop and waits for it to exit. Once Stop returns, no
// further snapshots will be taken. Stopping an idle monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("Memory monitoring stopped")
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.runCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCycle executes one snapshot-and-recover cycle. A failing cycle is
// logged and the loop carries on; only cancellation ends monitoring.
func (m *Monitor) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("Monitoring cycle failed: %v", r)
			m.publish(events.NewErrorEvent(events.ErrorPayload{
				ErrorMessage: "monitoring cycle failed",
				ErrorType:    "cycle_error",
				Timestamp:    m.now().UTC().Format(time.RFC3339),
			}))
		}
	}()

	snap := m.TakeSnapshot()
	if snap.Level >= pressure.Moderate {
		m.publish(events.NewSnapshotEvent(snap))
	}
	m.CheckAndRecover(ctx, snap)
}

func (m *Monitor) publish(e events.Event) {
	select {
	case m.events <- e:
	default:
		m.logger.Debug("Event buffer full, dropping event")
	}
}
