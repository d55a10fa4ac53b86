package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/memwarden/agent/pkg/recovery"
	"github.com/memwarden/agent/pkg/snapshot"
)

// Snapshot metrics
var (
	PressureLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memwarden_pressure_level",
			Help: "Current memory pressure level (0=low, 1=moderate, 2=high, 3=critical, 4=emergency)",
		},
	)

	MemoryUsedPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memwarden_memory_used_percent",
			Help: "System memory utilization as reported by the last snapshot",
		},
	)

	ProcessRSSMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memwarden_process_rss_mb",
			Help: "Resident set size of the monitored process in MB",
		},
	)

	LiveObjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memwarden_live_objects",
			Help: "Live heap objects as reported by the Go runtime",
		},
	)

	SnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memwarden_snapshots_total",
			Help: "Total number of memory snapshots taken",
		},
	)
)

// Recovery metrics
var (
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memwarden_recoveries_total",
			Help: "Total number of recovery strategy executions",
		},
		[]string{"action"},
	)

	RecoveryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memwarden_recovery_errors_total",
			Help: "Total number of per-resource errors collected during recovery",
		},
		[]string{"action"},
	)

	LastMemoryFreedMB = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memwarden_last_memory_freed_mb",
			Help: "Memory freed by the most recent execution of each action; may be negative",
		},
		[]string{"action"},
	)
)

// ObserveSnapshot updates the snapshot gauges.
func ObserveSnapshot(s snapshot.Snapshot) {
	PressureLevel.Set(float64(s.Level))
	MemoryUsedPercent.Set(s.PercentUsed)
	ProcessRSSMB.Set(s.ProcessRSSMB)
	LiveObjects.Set(float64(s.LiveObjects))
	SnapshotsTotal.Inc()
}

// ObserveOutcome updates the recovery counters for one strategy execution.
func ObserveOutcome(o recovery.Outcome) {
	action := string(o.Action)
	RecoveriesTotal.WithLabelValues(action).Inc()
	RecoveryErrorsTotal.WithLabelValues(action).Add(float64(len(o.Errors)))
	LastMemoryFreedMB.WithLabelValues(action).Set(o.MemoryFreedMB)
}
