package bench

import (
	"fmt"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"
)

// busyRatio is the 1-minute load per logical CPU above which timings are
// likely disturbed by other work on the host.
const busyRatio = 0.5

// HostLoad is a snapshot of system load.
type HostLoad struct {
	Load1 float64
	CPUs  int
}

// Busy reports whether the host carries enough load to skew measurements.
func (h HostLoad) Busy() bool {
	if h.CPUs <= 0 {
		return false
	}
	return h.Load1/float64(h.CPUs) > busyRatio
}

func (h HostLoad) String() string {
	return fmt.Sprintf("load %.2f on %d CPUs", h.Load1, h.CPUs)
}

// LoadFunc samples the host load.
type LoadFunc func() (HostLoad, error)

// ReadHostLoad samples the 1-minute load average and logical CPU count.
func ReadHostLoad() (HostLoad, error) {
	avg, err := load.Avg()
	if err != nil {
		return HostLoad{}, fmt.Errorf("failed to read load average: %w", err)
	}
	cpus, err := cpu.Counts(true)
	if err != nil {
		return HostLoad{}, fmt.Errorf("failed to count CPUs: %w", err)
	}
	return HostLoad{Load1: avg.Load1, CPUs: cpus}, nil
}
