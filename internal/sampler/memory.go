package sampler

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryProbe reports the resident memory of the measuring process.
type MemoryProbe interface {
	ResidentKB() (int64, error)
}

// ProcessProbe reads the resident set size of the current process.
type ProcessProbe struct {
	pid int32
}

func NewProcessProbe() *ProcessProbe {
	return &ProcessProbe{pid: int32(os.Getpid())}
}

func (p *ProcessProbe) ResidentKB() (int64, error) {
	proc, err := process.NewProcess(p.pid)
	if err != nil {
		return 0, fmt.Errorf("failed to open process %d: %w", p.pid, err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return int64(info.RSS / 1024), nil
}

// ProbeFunc adapts a function to MemoryProbe.
type ProbeFunc func() (int64, error)

func (f ProbeFunc) ResidentKB() (int64, error) { return f() }
