package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memwarden/agent/pkg/pressure"
	"github.com/memwarden/agent/pkg/snapshot"
)

// stubProber lets the strategy tests control RSS readings.
type stubProber struct {
	rssMB float64
	err   error
}

func (p *stubProber) SystemMemory() (snapshot.SystemMemory, error) {
	return snapshot.SystemMemory{TotalMB: 8192, PercentUsed: 50}, p.err
}

func (p *stubProber) ProcessMemory() (snapshot.ProcessMemory, error) {
	return snapshot.ProcessMemory{RSSMB: p.rssMB, VMSMB: p.rssMB * 2}, p.err
}

func snapAt(level pressure.Level) snapshot.Snapshot {
	return snapshot.Snapshot{Timestamp: time.Now(), Level: level}
}

func TestGCStrategyName(t *testing.T) {
	prober := &stubProber{rssMB: 100}
	assert.Equal(t, "gc", NewGCStrategy(prober, false).Name())
	assert.Equal(t, "gc_aggressive", NewGCStrategy(prober, true).Name())
}

func TestGCStrategyGating(t *testing.T) {
	s := NewGCStrategy(&stubProber{rssMB: 100}, false)

	assert.False(t, s.CanApply(snapAt(pressure.Low)))
	assert.True(t, s.CanApply(snapAt(pressure.Moderate)))
	assert.True(t, s.CanApply(snapAt(pressure.Emergency)))
}

func TestGCStrategyCooldown(t *testing.T) {
	s := NewGCStrategy(&stubProber{rssMB: 100}, false)

	current := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	snap := snapAt(pressure.Moderate)
	assert.True(t, s.CanApply(snap))

	s.Execute(context.Background(), snap)
	assert.False(t, s.CanApply(snap), "should be throttled right after an execution")

	current = current.Add(29 * time.Second)
	assert.False(t, s.CanApply(snap), "still inside the 30s window")

	current = current.Add(2 * time.Second)
	assert.True(t, s.CanApply(snap), "cooldown expired")
}

func TestGCStrategyIndependentCooldowns(t *testing.T) {
	prober := &stubProber{rssMB: 100}
	plain := NewGCStrategy(prober, false)
	aggressive := NewGCStrategy(prober, true)

	snap := snapAt(pressure.High)
	plain.Execute(context.Background(), snap)

	assert.False(t, plain.CanApply(snap))
	assert.True(t, aggressive.CanApply(snap), "each variant keeps its own cooldown clock")
}

func TestGCStrategyExecute(t *testing.T) {
	s := NewGCStrategy(&stubProber{rssMB: 100}, false)

	out := s.Execute(context.Background(), snapAt(pressure.High))

	assert.Equal(t, ActionGarbageCollect, out.Action)
	assert.Empty(t, out.Errors)
	assert.Greater(t, out.GCCyclesAfter, out.GCCyclesBefore, "runtime.GC must complete a cycle")
}

func TestGCStrategyDegradedIntrospection(t *testing.T) {
	s := NewGCStrategy(&stubProber{err: errors.New("introspection unavailable")}, true)

	out := s.Execute(context.Background(), snapAt(pressure.Critical))

	assert.Equal(t, ActionGarbageCollect, out.Action)
	assert.Equal(t, 0.0, out.MemoryFreedMB, "freed metric degrades to zero, never an error")
	assert.Empty(t, out.Errors)
}
