package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"taskmand/models"
)

// fakeSource replays a fixed sequence of samples and errors.
type fakeSource struct {
	samples []*RawSample
	errs    []error
	calls   int
}

func (f *fakeSource) Capture(ctx context.Context) (*RawSample, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.samples[i], nil
}

func sampleAt(ts time.Time, procs ...RawProc) *RawSample {
	return &RawSample{Timestamp: ts, Procs: procs}
}

func TestColdStartCPUZero(t *testing.T) {
	now := time.Now()
	src := &fakeSource{samples: []*RawSample{
		sampleAt(now, RawProc{PID: 1, Name: "init", CPUTime: 12.5}),
	}}
	agg := NewAggregator(src, 4)

	if err := agg.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	snap, ok := agg.Latest()
	if !ok {
		t.Fatal("no snapshot published")
	}
	if got := snap.Processes[0].CPUPercent; got != 0 {
		t.Errorf("first appearance CPUPercent = %v, want 0", got)
	}
}

func TestIdleProcessCPUZero(t *testing.T) {
	now := time.Now()
	src := &fakeSource{samples: []*RawSample{
		sampleAt(now, RawProc{PID: 1, CPUTime: 5}),
		sampleAt(now.Add(10*time.Second), RawProc{PID: 1, CPUTime: 5}),
	}}
	agg := NewAggregator(src, 2)

	for i := 0; i < 2; i++ {
		if err := agg.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
	}

	snap, _ := agg.Latest()
	if got := snap.Processes[0].CPUPercent; got != 0 {
		t.Errorf("idle process CPUPercent = %v, want 0", got)
	}
}

func TestCPUPercentFromCounterDelta(t *testing.T) {
	now := time.Now()
	// 1 cumulative second over a 10s window on 2 cores = 5%.
	src := &fakeSource{samples: []*RawSample{
		sampleAt(now, RawProc{PID: 1, CPUTime: 3}),
		sampleAt(now.Add(10*time.Second), RawProc{PID: 1, CPUTime: 4}),
	}}
	agg := NewAggregator(src, 2)

	for i := 0; i < 2; i++ {
		if err := agg.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
	}

	snap, _ := agg.Latest()
	if got := snap.Processes[0].CPUPercent; math.Abs(got-5.0) > 1e-9 {
		t.Errorf("CPUPercent = %v, want 5.0", got)
	}
}

func TestCPUPercentClamped(t *testing.T) {
	now := time.Now()
	src := &fakeSource{samples: []*RawSample{
		sampleAt(now, RawProc{PID: 1, CPUTime: 0}),
		sampleAt(now.Add(time.Second), RawProc{PID: 1, CPUTime: 500}),
	}}
	agg := NewAggregator(src, 1)

	for i := 0; i < 2; i++ {
		if err := agg.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
	}

	snap, _ := agg.Latest()
	if got := snap.Processes[0].CPUPercent; got != 100 {
		t.Errorf("CPUPercent = %v, want clamp at 100", got)
	}
}

func TestSortOrder(t *testing.T) {
	now := time.Now()
	src := &fakeSource{samples: []*RawSample{
		sampleAt(now,
			RawProc{PID: 10, CPUTime: 0},
			RawProc{PID: 20, CPUTime: 0},
			RawProc{PID: 30, CPUTime: 0},
		),
		sampleAt(now.Add(10*time.Second),
			RawProc{PID: 20, CPUTime: 1},
			RawProc{PID: 30, CPUTime: 2},
			RawProc{PID: 10, CPUTime: 1},
		),
	}}
	agg := NewAggregator(src, 1)

	for i := 0; i < 2; i++ {
		if err := agg.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
	}

	snap, _ := agg.Latest()
	var pids []int32
	for _, p := range snap.Processes {
		pids = append(pids, p.PID)
	}
	// 30 has the biggest delta; 10 and 20 tie and order by pid.
	want := []int32{30, 10, 20}
	for i := range want {
		if pids[i] != want[i] {
			t.Fatalf("process order = %v, want %v", pids, want)
		}
	}
	for i := 0; i+1 < len(snap.Processes); i++ {
		if snap.Processes[i].CPUPercent < snap.Processes[i+1].CPUPercent {
			t.Fatalf("processes not sorted descending at %d", i)
		}
	}
}

func TestStaleServingOnCaptureFailure(t *testing.T) {
	now := time.Now()
	src := &fakeSource{
		samples: []*RawSample{sampleAt(now, RawProc{PID: 1}), nil, nil},
		errs:    []error{nil, ErrSourceUnavailable, ErrSourceUnavailable},
	}
	agg := NewAggregator(src, 1)

	if err := agg.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	first, _ := agg.Latest()

	for i := 0; i < 2; i++ {
		err := agg.Tick(context.Background())
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("Tick error = %v, want ErrSourceUnavailable", err)
		}
	}

	snap, ok := agg.Latest()
	if !ok {
		t.Fatal("snapshot lost after capture failure")
	}
	if !snap.Timestamp.Equal(first.Timestamp) {
		t.Errorf("stale snapshot timestamp changed: %v != %v", snap.Timestamp, first.Timestamp)
	}
	if got := agg.ConsecutiveFailures(); got != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", got)
	}
}

func TestFailureCounterResets(t *testing.T) {
	now := time.Now()
	src := &fakeSource{
		samples: []*RawSample{nil, sampleAt(now, RawProc{PID: 1})},
		errs:    []error{ErrSourceUnavailable, nil},
	}
	agg := NewAggregator(src, 1)

	_ = agg.Tick(context.Background())
	if err := agg.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if got := agg.ConsecutiveFailures(); got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", got)
	}
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	now := time.Now()
	// Second sample deliberately reuses the same timestamp.
	src := &fakeSource{samples: []*RawSample{
		sampleAt(now, RawProc{PID: 1}),
		sampleAt(now, RawProc{PID: 1}),
		sampleAt(now.Add(time.Second), RawProc{PID: 1}),
	}}
	agg := NewAggregator(src, 1)

	var prev time.Time
	for i := 0; i < 3; i++ {
		if err := agg.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
		snap, _ := agg.Latest()
		if !snap.Timestamp.After(prev) {
			t.Fatalf("tick %d: timestamp %v not after %v", i, snap.Timestamp, prev)
		}
		prev = snap.Timestamp
	}
}

func TestLatestBeforeFirstTick(t *testing.T) {
	agg := NewAggregator(&fakeSource{}, 1)
	if snap, ok := agg.Latest(); ok || snap != nil {
		t.Errorf("Latest before first tick = (%v, %v), want (nil, false)", snap, ok)
	}
	if _, ok := agg.Staleness(); ok {
		t.Error("Staleness reported ok before first tick")
	}
}

func TestSnapshotCounts(t *testing.T) {
	now := time.Now()
	src := &fakeSource{samples: []*RawSample{
		{
			Timestamp: now,
			Procs:     []RawProc{{PID: 1, MemoryPercent: 150}, {PID: 2}},
			Memory:    models.MemoryStat{Total: 100, Used: 40, Percent: 40},
		},
	}}
	agg := NewAggregator(src, 1)

	if err := agg.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	snap, _ := agg.Latest()
	if snap.NumProcs != 2 {
		t.Errorf("NumProcs = %d, want 2", snap.NumProcs)
	}
	if got := snap.Processes[0].MemoryPercent; got != 100 {
		t.Errorf("MemoryPercent = %v, want clamp at 100", got)
	}
	if snap.Memory.Used != 40 {
		t.Errorf("Memory.Used = %d, want 40", snap.Memory.Used)
	}
}
