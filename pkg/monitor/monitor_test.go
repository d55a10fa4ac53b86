package monitor

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/recovery"
	"github.com/memwarden/agent/pkg/snapshot"
)

// fakeProber reports a controllable percent-used reading.
type fakeProber struct {
	mu      sync.Mutex
	percent float64
}

func (p *fakeProber) setPercent(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = v
}

func (p *fakeProber) SystemMemory() (snapshot.SystemMemory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return snapshot.SystemMemory{
		TotalMB:     8192,
		AvailableMB: 8192 * (100 - p.percent) / 100,
		UsedMB:      8192 * p.percent / 100,
		PercentUsed: p.percent,
	}, nil
}

func (p *fakeProber) ProcessMemory() (snapshot.ProcessMemory, error) {
	return snapshot.ProcessMemory{RSSMB: 256, VMSMB: 512}, nil
}

// stubStrategy is a controllable recovery strategy.
type stubStrategy struct {
	name       string
	priority   int
	applies    bool
	action     recovery.Action
	onExecute  func()
	executions int
	panicOn    bool
}

func (s *stubStrategy) Name() string  { return s.name }
func (s *stubStrategy) Priority() int { return s.priority }

func (s *stubStrategy) CanApply(snap snapshot.Snapshot) bool {
	if s.panicOn {
		panic("boom")
	}
	return s.applies
}

func (s *stubStrategy) Execute(ctx context.Context, snap snapshot.Snapshot) recovery.Outcome {
	s.executions++
	if s.onExecute != nil {
		s.onExecute()
	}
	return recovery.Outcome{Action: s.action}
}

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMonitor(prober snapshot.Prober) *Monitor {
	return New(DefaultConfig(), pressure.DefaultThresholds(), prober, testLogger())
}

func criticalSnapshot(m *Monitor, prober *fakeProber) snapshot.Snapshot {
	prober.setPercent(92)
	return m.TakeSnapshot()
}

func TestCheckAndRecoverLowPressureNoop(t *testing.T) {
	prober := &fakeProber{percent: 30}
	m := newTestMonitor(prober)
	strat := &stubStrategy{name: "gc", priority: 1, applies: true, action: recovery.ActionGarbageCollect}
	m.AddStrategy(strat)

	snap := m.TakeSnapshot()
	require.Equal(t, pressure.Low, snap.Level)

	outcomes := m.CheckAndRecover(context.Background(), snap)

	assert.Nil(t, outcomes)
	assert.Equal(t, 0, strat.executions)
}

func TestCheckAndRecoverPriorityOrder(t *testing.T) {
	prober := &fakeProber{}
	m := newTestMonitor(prober)

	var order []string
	mark := func(name string) func() {
		return func() { order = append(order, name) }
	}

	// Registered out of order on purpose
	m.AddStrategy(&stubStrategy{name: "pool", priority: 3, applies: true, action: recovery.ActionReduceConnections, onExecute: mark("pool")})
	m.AddStrategy(&stubStrategy{name: "gc", priority: 1, applies: true, action: recovery.ActionGarbageCollect, onExecute: mark("gc")})
	m.AddStrategy(&stubStrategy{name: "cache", priority: 2, applies: true, action: recovery.ActionClearCaches, onExecute: mark("cache")})

	outcomes := m.CheckAndRecover(context.Background(), criticalSnapshot(m, prober))

	require.Len(t, outcomes, 3)
	assert.Equal(t, []string{"gc", "cache", "pool"}, order)
}

func TestAddStrategyStableTieBreak(t *testing.T) {
	prober := &fakeProber{}
	m := newTestMonitor(prober)

	var order []string
	m.AddStrategy(&stubStrategy{name: "gc_plain", priority: 1, applies: true, action: recovery.ActionGarbageCollect,
		onExecute: func() { order = append(order, "gc_plain") }})
	m.AddStrategy(&stubStrategy{name: "gc_aggressive", priority: 1, applies: true, action: recovery.ActionGarbageCollect,
		onExecute: func() { order = append(order, "gc_aggressive") }})

	m.CheckAndRecover(context.Background(), criticalSnapshot(m, prober))

	assert.Equal(t, []string{"gc_plain", "gc_aggressive"}, order,
		"strategies sharing a priority keep registration order")
}

func TestCheckAndRecoverEarlyExitOnImprovement(t *testing.T) {
	prober := &fakeProber{}
	m := newTestMonitor(prober)

	gc := &stubStrategy{name: "gc", priority: 1, applies: true, action: recovery.ActionGarbageCollect,
		// The GC "works": the re-snapshot after execution reads High
		onExecute: func() { prober.setPercent(85) }}
	pool := &stubStrategy{name: "pool", priority: 3, applies: true, action: recovery.ActionReduceConnections}
	m.AddStrategy(gc)
	m.AddStrategy(pool)

	outcomes := m.CheckAndRecover(context.Background(), criticalSnapshot(m, prober))

	require.Len(t, outcomes, 1)
	assert.Equal(t, recovery.ActionGarbageCollect, outcomes[0].Action)
	assert.Equal(t, 0, pool.executions, "invasive strategies are skipped once pressure eases")
}

func TestCheckAndRecoverGlobalThrottle(t *testing.T) {
	prober := &fakeProber{}
	m := newTestMonitor(prober)

	current := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	strat := &stubStrategy{name: "gc", priority: 1, applies: true, action: recovery.ActionGarbageCollect}
	m.AddStrategy(strat)

	snap := criticalSnapshot(m, prober)

	first := m.CheckAndRecover(context.Background(), snap)
	require.Len(t, first, 1)

	current = current.Add(10 * time.Second)
	second := m.CheckAndRecover(context.Background(), snap)
	assert.Empty(t, second, "a second pass within the throttle window does nothing")

	current = current.Add(31 * time.Second)
	third := m.CheckAndRecover(context.Background(), snap)
	assert.Len(t, third, 1)
}

func TestCheckAndRecoverSurvivesPanickingStrategy(t *testing.T) {
	prober := &fakeProber{}
	m := newTestMonitor(prober)

	m.AddStrategy(&stubStrategy{name: "broken", priority: 1, panicOn: true})
	m.AddStrategy(&stubStrategy{name: "pool", priority: 3, applies: true, action: recovery.ActionReduceConnections})

	outcomes := m.CheckAndRecover(context.Background(), criticalSnapshot(m, prober))

	require.Len(t, outcomes, 1)
	assert.Equal(t, recovery.ActionReduceConnections, outcomes[0].Action)
}

func TestSnapshotHistoryBatchTrim(t *testing.T) {
	prober := &fakeProber{percent: 30}
	m := newTestMonitor(prober)

	for i := 0; i < 100; i++ {
		m.TakeSnapshot()
	}
	assert.Equal(t, 100, m.Status().SnapshotCount)

	// Crossing the bound trims to half in one batch, not to exactly N
	m.TakeSnapshot()
	assert.Equal(t, 50, m.Status().SnapshotCount)

	for i := 0; i < 49; i++ {
		m.TakeSnapshot()
	}
	assert.Equal(t, 99, m.Status().SnapshotCount, "history stays below the bound between trims")
}

func TestRecoveryHistoryBounded(t *testing.T) {
	prober := &fakeProber{}
	m := New(Config{MaxRecoveryHistory: 10, MaxSnapshots: 1000, RecoveryInterval: time.Nanosecond},
		pressure.DefaultThresholds(), prober, testLogger())

	current := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.AddStrategy(&stubStrategy{name: "gc", priority: 1, applies: true, action: recovery.ActionGarbageCollect})

	snap := criticalSnapshot(m, prober)
	for i := 0; i < 15; i++ {
		current = current.Add(time.Minute)
		m.CheckAndRecover(context.Background(), snap)
	}

	assert.LessOrEqual(t, len(m.RecoveryHistory()), 10)
}

func TestStatusNoData(t *testing.T) {
	m := newTestMonitor(&fakeProber{percent: 30})

	status := m.Status()

	assert.Equal(t, StatusNoData, status.Status)
	assert.Equal(t, 0, status.SnapshotCount)
	assert.False(t, status.MonitoringActive)
}

func TestStatusReportsLatestSnapshot(t *testing.T) {
	prober := &fakeProber{percent: 75}
	m := newTestMonitor(prober)

	m.TakeSnapshot()
	prober.setPercent(85)
	m.TakeSnapshot()

	status := m.Status()
	assert.Equal(t, StatusOK, status.Status)
	assert.Equal(t, 85.0, status.Latest.PercentUsed)
	assert.Equal(t, pressure.High, status.Latest.Level)
	assert.Equal(t, 2, status.SnapshotCount)
}

func TestStartStopLifecycle(t *testing.T) {
	prober := &fakeProber{percent: 30}
	m := newTestMonitor(prober)

	m.Start(10 * time.Millisecond)
	assert.True(t, m.Status().MonitoringActive)

	// Idempotent start
	m.Start(10 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return m.Status().SnapshotCount >= 2
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.Status().MonitoringActive)

	// No further snapshots after Stop returns
	count := m.Status().SnapshotCount
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, m.Status().SnapshotCount)

	// Stopping an idle monitor is a no-op
	m.Stop()
}

// End-to-end: a critical reading where GC does not help must escalate to
// pool reduction.
func TestRecoveryEscalation(t *testing.T) {
	prober := &fakeProber{}
	m := newTestMonitor(prober)

	pool := &resizablePool{maxSize: 20}
	m.AddStrategy(recovery.NewGCStrategy(prober, false))
	m.AddStrategy(recovery.NewPoolReductionStrategy(pool))

	// 92% used stays pinned: the GC pass does not move the needle
	snap := criticalSnapshot(m, prober)
	require.Equal(t, pressure.Critical, snap.Level)

	outcomes := m.CheckAndRecover(context.Background(), snap)

	require.Len(t, outcomes, 2)
	assert.Equal(t, recovery.ActionGarbageCollect, outcomes[0].Action)
	assert.Equal(t, recovery.ActionReduceConnections, outcomes[1].Action)
	assert.Equal(t, 10, pool.maxSize)
}

type resizablePool struct {
	maxSize int
}

func (p *resizablePool) MaxSize() int     { return p.maxSize }
func (p *resizablePool) SetMaxSize(n int) { p.maxSize = n }
