package system

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a snapshot of this process' resource usage
type ProcessStats struct {
	CPUPercent float64
	RSSBytes   uint64
	Goroutines int
	NumCPU     int
}

// CurrentStats reads CPU and memory usage of the running process
func CurrentStats() (ProcessStats, error) {
	stats := ProcessStats{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats, err
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = mem.RSS
	return stats, nil
}

func (s ProcessStats) String() string {
	return fmt.Sprintf("CPU: %.1f%% | RSS: %.1f MB | Goroutines: %d", s.CPUPercent, float64(s.RSSBytes)/(1<<20), s.Goroutines)
}

// AppendBenchmark appends one line to the benchmark log
func AppendBenchmark(path, entry string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), entry)
	return err
}
