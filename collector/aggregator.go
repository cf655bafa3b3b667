package collector

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"taskmand/models"
)

// Aggregator drives snapshot collection and derives per-process CPU
// rates from consecutive counter readings. A single writer (the
// dispatcher loop) calls Tick; any number of readers call Latest.
//
// Publication is an atomic pointer swap of an immutable snapshot, so
// readers never observe a half-built value.
type Aggregator struct {
	source   Source
	numCores int

	// Previous raw counters, touched only by the Tick caller.
	prevCPUTime  map[int32]float64
	prevCPUTotal float64
	prevCPUIdle  float64
	prevAt       time.Time

	published atomic.Pointer[models.SystemSnapshot]
	failures  atomic.Int64
}

func NewAggregator(source Source, numCores int) *Aggregator {
	if numCores < 1 {
		numCores = 1
	}
	return &Aggregator{
		source:      source,
		numCores:    numCores,
		prevCPUTime: make(map[int32]float64),
	}
}

// Tick captures one raw sample, derives rates against the previous one
// and publishes the resulting snapshot. On capture failure the last
// good snapshot stays published and the consecutive-failure counter
// grows; the error is returned for logging only.
func (a *Aggregator) Tick(ctx context.Context) error {
	raw, err := a.source.Capture(ctx)
	if err != nil {
		a.failures.Add(1)
		return fmt.Errorf("capture: %w", err)
	}

	snap := a.build(raw)

	// Published timestamps must be strictly increasing even if the
	// clock stalls between ticks.
	if last := a.published.Load(); last != nil && !snap.Timestamp.After(last.Timestamp) {
		snap.Timestamp = last.Timestamp.Add(time.Nanosecond)
	}
	a.published.Store(snap)
	a.failures.Store(0)

	// Retain the new counters, discarding the old ones.
	next := make(map[int32]float64, len(raw.Procs))
	for _, p := range raw.Procs {
		next[p.PID] = p.CPUTime
	}
	a.prevCPUTime = next
	a.prevCPUTotal = raw.CPUTotal
	a.prevCPUIdle = raw.CPUIdle
	a.prevAt = raw.Timestamp

	return nil
}

// build turns a raw sample into an immutable snapshot.
func (a *Aggregator) build(raw *RawSample) *models.SystemSnapshot {
	wallDelta := 0.0
	if !a.prevAt.IsZero() {
		wallDelta = raw.Timestamp.Sub(a.prevAt).Seconds()
	}

	records := make([]models.ProcessRecord, 0, len(raw.Procs))
	for _, p := range raw.Procs {
		records = append(records, models.ProcessRecord{
			PID:           p.PID,
			Name:          p.Name,
			User:          p.User,
			Status:        p.Status,
			CPUPercent:    a.cpuPercent(p, wallDelta),
			MemoryPercent: clampPercent(p.MemoryPercent),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CPUPercent != records[j].CPUPercent {
			return records[i].CPUPercent > records[j].CPUPercent
		}
		return records[i].PID < records[j].PID
	})

	return &models.SystemSnapshot{
		Timestamp:  raw.Timestamp,
		Processes:  records,
		CPUPercent: a.hostCPUPercent(raw),
		Load:       raw.Load,
		Memory:     raw.Memory,
		Swap:       raw.Swap,
		Disk:       raw.Disk,
		BootTime:   raw.BootTime,
		NumProcs:   len(records),
		Containers: raw.Containers,
		Latency:    raw.Latency,
	}
}

// cpuPercent derives the busy percentage from the cumulative counter
// delta over the wall-clock window, normalized by core count. A process
// with no previous counter sample reports 0 on its first appearance.
func (a *Aggregator) cpuPercent(p RawProc, wallDelta float64) float64 {
	if wallDelta <= 0 {
		return 0
	}
	prev, ok := a.prevCPUTime[p.PID]
	if !ok {
		return 0
	}
	delta := p.CPUTime - prev
	if delta <= 0 {
		// PID reuse can make the counter go backwards.
		return 0
	}
	return clampPercent(100 * delta / wallDelta / float64(a.numCores))
}

// hostCPUPercent derives total CPU busy from aggregate counter deltas.
func (a *Aggregator) hostCPUPercent(raw *RawSample) float64 {
	if a.prevCPUTotal <= 0 {
		return 0
	}
	dt := raw.CPUTotal - a.prevCPUTotal
	di := raw.CPUIdle - a.prevCPUIdle
	if dt <= 0 {
		return 0
	}
	return clampPercent(100 * (1 - di/dt))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Latest returns the most recently published snapshot. It never blocks;
// ok is false before the first successful tick.
func (a *Aggregator) Latest() (*models.SystemSnapshot, bool) {
	snap := a.published.Load()
	if snap == nil {
		return nil, false
	}
	return snap, true
}

// Staleness reports the age of the published snapshot, or ok=false when
// nothing has been published yet.
func (a *Aggregator) Staleness() (time.Duration, bool) {
	snap := a.published.Load()
	if snap == nil {
		return 0, false
	}
	return snap.Staleness(), true
}

// ConsecutiveFailures reports how many capture cycles in a row have
// failed since the last successful publish.
func (a *Aggregator) ConsecutiveFailures() int {
	return int(a.failures.Load())
}
