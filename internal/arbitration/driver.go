package arbitration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TickObserver is called after every tick with fresh snapshots of all
// junctions. Observers run on the driver goroutine, one after another.
type TickObserver func(ctx context.Context, now time.Time, snapshots []Snapshot)

// Driver is the single clock of the system: it calls Engine.Tick once per
// interval until its context is cancelled.
type Driver struct {
	engine   *Engine
	interval time.Duration
	logger   Logger

	mu        sync.Mutex
	observers []TickObserver

	ticks atomic.Uint64
}

// NewDriver creates a driver for engine. A non-positive interval means
// one second.
func NewDriver(engine *Engine, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	return &Driver{
		engine:   engine,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for tick failures and observer panics.
func (d *Driver) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Observe registers an observer.
func (d *Driver) Observe(o TickObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Ticks returns how many ticks have completed.
func (d *Driver) Ticks() uint64 { return d.ticks.Load() }

// Run ticks the engine every interval and blocks until ctx is cancelled.
// It returns nil on cancellation.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("tick driver started", "interval", d.interval.String())
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("tick driver stopped", "ticks", d.ticks.Load())
			return nil
		case now := <-ticker.C:
			if err := d.Step(ctx, now.UTC()); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("tick failed", "error", err)
			}
		}
	}
}

// Step performs one tick at now and notifies observers. Run calls it on
// every timer fire; tests call it directly.
func (d *Driver) Step(ctx context.Context, now time.Time) error {
	if err := d.engine.Tick(ctx, now); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	d.ticks.Add(1)

	d.mu.Lock()
	observers := append([]TickObserver(nil), d.observers...)
	d.mu.Unlock()
	if len(observers) == 0 {
		return nil
	}

	snapshots := d.engine.Snapshots()
	for _, o := range observers {
		d.notify(ctx, o, now, snapshots)
	}
	return nil
}

func (d *Driver) notify(ctx context.Context, o TickObserver, now time.Time, snapshots []Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tick observer panicked", "panic", fmt.Sprint(r))
		}
	}()
	o(ctx, now, snapshots)
}
