package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskmand/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrSourceUnavailable marks a capture cycle that produced no usable
// process table. Callers keep serving the last good snapshot.
var ErrSourceUnavailable = errors.New("snapshot source unavailable")

// RawProc is one process with its cumulative CPU counter, before any
// rate derivation.
type RawProc struct {
	PID           int32
	Name          string
	User          string
	Status        models.ProcStatus
	CPUTime       float64 // cumulative user+system seconds
	MemoryPercent float64
}

// RawSample is everything read in one observation window.
type RawSample struct {
	Timestamp  time.Time
	Procs      []RawProc
	CPUTotal   float64 // aggregate counters across all cores
	CPUIdle    float64
	Load       models.LoadStat
	Memory     models.MemoryStat
	Swap       models.SwapStat
	Disk       models.DiskStat
	BootTime   time.Time
	Containers []models.ContainerRecord
	Latency    []models.LatencyRecord
}

// Source captures raw system state on demand.
type Source interface {
	Capture(ctx context.Context) (*RawSample, error)
}

// SystemSource reads the live host via gopsutil. Read-only.
type SystemSource struct {
	DiskPath       string
	LatencyTargets []string

	caps Capabilities
}

func NewSystemSource(diskPath string, latencyTargets []string) *SystemSource {
	return &SystemSource{
		DiskPath:       diskPath,
		LatencyTargets: latencyTargets,
		caps:           DetectCapabilities(),
	}
}

// Capture reads the full system state in a single observation window.
// Processes that exit or deny access between enumeration and counter
// read are dropped silently; only failing to enumerate at all is fatal.
func (s *SystemSource) Capture(ctx context.Context) (*RawSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: process enumeration: %v", ErrSourceUnavailable, err)
	}

	sample := &RawSample{
		Timestamp: time.Now(),
		Procs:     make([]RawProc, 0, len(procs)),
	}

	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, ctx.Err())
		}
		raw, ok := readProc(ctx, p)
		if !ok {
			continue
		}
		sample.Procs = append(sample.Procs, raw)
	}

	// Aggregate CPU counters for the host-wide busy percentage.
	if times, err := cpu.TimesWithContext(ctx, false); err == nil && len(times) > 0 {
		sample.CPUTotal = times[0].Total()
		sample.CPUIdle = times[0].Idle + times[0].Iowait
	}

	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.Memory = models.MemoryStat{
			Total:   memInfo.Total,
			Used:    memInfo.Used,
			Percent: memInfo.UsedPercent,
		}
	}

	if swapInfo, err := mem.SwapMemoryWithContext(ctx); err == nil {
		sample.Swap = models.SwapStat{
			Total:   swapInfo.Total,
			Used:    swapInfo.Used,
			Percent: swapInfo.UsedPercent,
		}
	}

	if diskUsage, err := disk.UsageWithContext(ctx, s.DiskPath); err == nil {
		sample.Disk = models.DiskStat{
			Total:   diskUsage.Total,
			Used:    diskUsage.Used,
			Percent: diskUsage.UsedPercent,
		}
	}

	if loadAvg, err := load.AvgWithContext(ctx); err == nil && loadAvg != nil {
		sample.Load = models.LoadStat{
			Load1:  loadAvg.Load1,
			Load5:  loadAvg.Load5,
			Load15: loadAvg.Load15,
		}
	}

	if bootSec, err := host.BootTimeWithContext(ctx); err == nil {
		sample.BootTime = time.Unix(int64(bootSec), 0)
	}

	if s.caps.HasDockerSocket {
		sample.Containers = collectContainers(ctx)
	}
	sample.Latency = probeLatency(ctx, s.LatencyTargets)

	return sample, nil
}

// readProc samples one process. A false return means the process exited
// or denied access mid-read; expected, not exceptional.
func readProc(ctx context.Context, p *process.Process) (RawProc, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return RawProc{}, false
	}

	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return RawProc{}, false
	}

	raw := RawProc{
		PID:     p.Pid,
		Name:    name,
		Status:  models.StatusUnknown,
		CPUTime: times.User + times.System,
	}

	// Username and status stay best-effort: a record without them is
	// still worth reporting.
	if user, err := p.UsernameWithContext(ctx); err == nil {
		raw.User = user
	}
	if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
		raw.Status = models.NormalizeProcStatus(status[0])
	}
	if memPct, err := p.MemoryPercentWithContext(ctx); err == nil {
		raw.MemoryPercent = float64(memPct)
	}

	return raw, true
}
