package monitor

import (
	"github.com/memwarden/agent/pkg/recovery"
	"github.com/memwarden/agent/pkg/snapshot"
)

const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// Status is a read-only projection of the monitor state for diagnostics.
type Status struct {
	Status           string            `json:"status"`
	Latest           snapshot.Snapshot `json:"latest,omitempty"`
	SnapshotCount    int               `json:"snapshot_count"`
	RecoveryCount    int               `json:"recovery_count"`
	StrategyCount    int               `json:"strategy_count"`
	MonitoringActive bool              `json:"monitoring_active"`
}

// Status reports the latest snapshot plus counters. When no snapshot has
// ever been taken it returns an explicit no-data sentinel instead of
// failing.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{
		SnapshotCount:    len(m.snapshots),
		RecoveryCount:    len(m.recoveryHistory),
		StrategyCount:    len(m.strategies),
		MonitoringActive: m.running,
	}
	if len(m.snapshots) == 0 {
		status.Status = StatusNoData
		return status
	}

	status.Status = StatusOK
	status.Latest = m.snapshots[len(m.snapshots)-1]
	return status
}

// RecoveryHistory returns a copy of the bounded recovery outcome history.
func (m *Monitor) RecoveryHistory() []recovery.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recovery.Outcome(nil), m.recoveryHistory...)
}
