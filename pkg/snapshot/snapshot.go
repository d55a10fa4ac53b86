package snapshot

import (
	"runtime"
	"time"

	"github.com/memwarden/agent/pkg/pressure"
)

// GCStats captures the Go runtime garbage collector counters at the time of
// a snapshot.
type GCStats struct {
	Cycles     uint32        `json:"cycles"`
	Forced     uint32        `json:"forced"`
	PauseTotal time.Duration `json:"pause_total"`
}

// Snapshot is an immutable point-in-time view of memory state, combining
// OS-level virtual memory stats, process stats and runtime GC stats.
// PercentUsed and Level are mutually consistent per the thresholds that
// produced the snapshot.
type Snapshot struct {
	Timestamp    time.Time      `json:"timestamp"`
	TotalMB      float64        `json:"total_mb"`
	AvailableMB  float64        `json:"available_mb"`
	UsedMB       float64        `json:"used_mb"`
	PercentUsed  float64        `json:"percent_used"`
	Level        pressure.Level `json:"pressure_level"`
	GC           GCStats        `json:"gc"`
	LiveObjects  uint64         `json:"live_objects"`
	ProcessRSSMB float64        `json:"process_rss_mb"`
	ProcessVMSMB float64        `json:"process_vms_mb"`
}

// Take collects a snapshot from the prober and the Go runtime. It never
// fails: unavailable OS introspection degrades to fixed fallback values,
// monitoring must never be the thing that takes the process down.
func Take(p Prober, t pressure.Thresholds, now time.Time) Snapshot {
	sys, err := p.SystemMemory()
	if err != nil {
		sys = SystemMemory{
			TotalMB:     FallbackTotalMB,
			AvailableMB: FallbackTotalMB / 2,
			UsedMB:      FallbackTotalMB / 2,
			PercentUsed: FallbackPercentUsed,
		}
	}

	proc, err := p.ProcessMemory()
	if err != nil {
		proc = ProcessMemory{
			RSSMB: FallbackProcessRSSMB,
			VMSMB: FallbackProcessVMSMB,
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Snapshot{
		Timestamp:   now,
		TotalMB:     sys.TotalMB,
		AvailableMB: sys.AvailableMB,
		UsedMB:      sys.UsedMB,
		PercentUsed: sys.PercentUsed,
		Level:       pressure.Classify(sys.PercentUsed, t),
		GC: GCStats{
			Cycles:     ms.NumGC,
			Forced:     ms.NumForcedGC,
			PauseTotal: time.Duration(ms.PauseTotalNs),
		},
		LiveObjects:  ms.HeapObjects,
		ProcessRSSMB: proc.RSSMB,
		ProcessVMSMB: proc.VMSMB,
	}
}
