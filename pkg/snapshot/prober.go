package snapshot

import (
	"errors"
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Fallback values reported when OS introspection is unavailable. A degraded
// but plausible signal keeps the monitoring loop alive instead of turning
// the monitor itself into a crash loop.
const (
	FallbackTotalMB      = 8192.0
	FallbackPercentUsed  = 50.0
	FallbackProcessRSSMB = 512.0
	FallbackProcessVMSMB = 1024.0
)

// SystemMemory is an OS-level view of total machine memory.
type SystemMemory struct {
	TotalMB     float64
	AvailableMB float64
	UsedMB      float64
	PercentUsed float64
}

// ProcessMemory is an OS-level view of this process.
type ProcessMemory struct {
	RSSMB float64
	VMSMB float64
}

// Prober abstracts OS memory introspection so tests can substitute
// synthetic readings.
type Prober interface {
	SystemMemory() (SystemMemory, error)
	ProcessMemory() (ProcessMemory, error)
}

// SystemProber reads memory stats through gopsutil.
type SystemProber struct {
	proc *process.Process
}

func NewSystemProber() *SystemProber {
	// A failed process handle is tolerated, ProcessMemory degrades to an
	// error which the snapshot layer replaces with fallback values
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &SystemProber{proc: proc}
}

func (p *SystemProber) SystemMemory() (SystemMemory, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return SystemMemory{}, err
	}
	return SystemMemory{
		TotalMB:     bytesToMB(vm.Total),
		AvailableMB: bytesToMB(vm.Available),
		UsedMB:      bytesToMB(vm.Used),
		PercentUsed: vm.UsedPercent,
	}, nil
}

func (p *SystemProber) ProcessMemory() (ProcessMemory, error) {
	if p.proc == nil {
		return ProcessMemory{}, errors.New("process handle unavailable")
	}
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return ProcessMemory{}, err
	}
	return ProcessMemory{
		RSSMB: bytesToMB(info.RSS),
		VMSMB: bytesToMB(info.VMS),
	}, nil
}

func bytesToMB(b uint64) float64 {
	return float64(b) / (1024 * 1024)
}
