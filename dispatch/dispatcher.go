package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"taskmand/collector"
	"taskmand/models"
)

// Dispatcher owns the two collection cadences: a fast loop driving the
// metrics aggregator and a slower one driving the service reader. Each
// successful collection is pushed to subscribers; failures are logged
// and the loops continue.
type Dispatcher struct {
	agg      *collector.Aggregator
	services *collector.ServiceReader

	metricsInterval  time.Duration
	servicesInterval time.Duration
	captureTimeout   time.Duration
	serviceFilter    string

	mu           sync.Mutex
	snapshotSubs []func(*models.SystemSnapshot)
	serviceSubs  []func([]models.ServiceRecord)
}

func New(agg *collector.Aggregator, services *collector.ServiceReader, metricsInterval, servicesInterval, captureTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		agg:              agg,
		services:         services,
		metricsInterval:  metricsInterval,
		servicesInterval: servicesInterval,
		captureTimeout:   captureTimeout,
	}
}

// SetServiceFilter restricts the service poll to units whose name
// contains the given substring.
func (d *Dispatcher) SetServiceFilter(filter string) {
	d.serviceFilter = filter
}

// Subscribe registers a callback invoked after every successful metrics
// tick, in subscription order, on the collection goroutine.
func (d *Dispatcher) Subscribe(fn func(*models.SystemSnapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshotSubs = append(d.snapshotSubs, fn)
}

// SubscribeServices registers a callback invoked after every successful
// service poll.
func (d *Dispatcher) SubscribeServices(fn func([]models.ServiceRecord)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serviceSubs = append(d.serviceSubs, fn)
}

// Latest returns the most recently published snapshot without blocking.
func (d *Dispatcher) Latest() (*models.SystemSnapshot, bool) {
	return d.agg.Latest()
}

// LatestServices returns the most recently published unit list without
// blocking.
func (d *Dispatcher) LatestServices() ([]models.ServiceRecord, bool) {
	return d.services.Latest()
}

// Run drives both loops until ctx is cancelled. The two loops touch
// disjoint state and may run concurrently with each other; neither ever
// overlaps with itself.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.loop(ctx, d.metricsInterval, d.metricsTick)
	}()
	go func() {
		defer wg.Done()
		d.loop(ctx, d.servicesInterval, d.servicesTick)
	}()
	wg.Wait()
}

// loop runs task immediately, then on each tick. A firing that arrives
// while the task is still running is dropped, not queued, so cadence
// degrades under load instead of building a backlog.
func (d *Dispatcher) loop(ctx context.Context, interval time.Duration, task func(context.Context)) {
	task(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task(ctx)
			select {
			case <-ticker.C:
			default:
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) metricsTick(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, d.captureTimeout)
	defer cancel()

	if err := d.agg.Tick(tctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("Metrics tick failed, serving last snapshot (%d consecutive): %v",
			d.agg.ConsecutiveFailures(), err)
		return
	}

	snap, ok := d.agg.Latest()
	if !ok {
		return
	}
	for _, fn := range d.snapshotSubscribers() {
		fn(snap)
	}
}

func (d *Dispatcher) servicesTick(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, d.captureTimeout)
	defer cancel()

	if err := d.services.Poll(tctx, d.serviceFilter); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("Service poll failed, serving last unit list (%d consecutive): %v",
			d.services.ConsecutiveFailures(), err)
		return
	}

	units, ok := d.services.Latest()
	if !ok {
		return
	}
	for _, fn := range d.serviceSubscribers() {
		fn(units)
	}
}

func (d *Dispatcher) snapshotSubscribers() []func(*models.SystemSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append(([]func(*models.SystemSnapshot))(nil), d.snapshotSubs...)
}

func (d *Dispatcher) serviceSubscribers() []func([]models.ServiceRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append(([]func([]models.ServiceRecord))(nil), d.serviceSubs...)
}
