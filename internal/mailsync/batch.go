package mailsync

import (
	"log"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	// DefaultBatchSize is the number of messages fetched per batch.
	DefaultBatchSize = 50

	// DefaultMemoryThreshold is the memory usage percentage above which the
	// governor forces a release between batches.
	DefaultMemoryThreshold = 80.0
)

// Governor partitions UID sets into fetch batches and keeps memory usage in
// check between them. Batch-size adjustment is advisory: it changes future
// partitioning, never a batch already in flight.
type Governor struct {
	BatchSize       int
	MemoryThreshold float64
}

func NewGovernor() *Governor {
	return &Governor{
		BatchSize:       DefaultBatchSize,
		MemoryThreshold: DefaultMemoryThreshold,
	}
}

// SplitIntoBatches partitions uids into consecutive batches of at most
// BatchSize, preserving order. An empty input yields no batches.
func (g *Governor) SplitIntoBatches(uids []uint32) [][]uint32 {
	size := g.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var batches [][]uint32
	for start := 0; start < len(uids); start += size {
		end := start + size
		if end > len(uids) {
			end = len(uids)
		}
		batches = append(batches, uids[start:end])
	}
	return batches
}

// MemoryUsagePercent returns the process RSS as a percentage of total system
// memory. Sampling failures report 0 so syncing is never blocked on a
// metrics problem.
func (g *Governor) MemoryUsagePercent() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}

	info, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}

	vm, err := mem.VirtualMemory()
	if err != nil || vm.Total == 0 {
		return 0
	}

	return float64(info.RSS) / float64(vm.Total) * 100
}

// CheckAndReleaseMemory forces a GC and returns memory to the OS when usage
// is above the threshold. Called between fetch batches.
func (g *Governor) CheckAndReleaseMemory() {
	usage := g.MemoryUsagePercent()
	if usage <= g.MemoryThreshold {
		return
	}

	log.Printf("Memory usage %.1f%% above threshold %.1f%%, releasing", usage, g.MemoryThreshold)
	runtime.GC()
	debug.FreeOSMemory()
	log.Printf("Memory usage after release: %.1f%%", g.MemoryUsagePercent())
}

// AdjustBatchSize shrinks the batch size under memory pressure and grows it
// back when usage is low. Returns the new size.
func (g *Governor) AdjustBatchSize() int {
	return g.adjustFor(g.MemoryUsagePercent())
}

func (g *Governor) adjustFor(usage float64) int {
	switch {
	case usage > 70:
		g.BatchSize = max(10, g.BatchSize/2)
	case usage < 40:
		g.BatchSize = min(100, g.BatchSize*2)
	}
	return g.BatchSize
}
