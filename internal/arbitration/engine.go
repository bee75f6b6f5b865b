package arbitration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Logger defines the logging interface used by the Engine and Driver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the engine's timing policy. Zero fields take the values
// from DefaultConfig.
type Config struct {
	// RecoverySeconds is how long a junction stays RECOVERING after its
	// preemption countdown ends.
	RecoverySeconds int

	// DefaultClearanceSeconds applies when a preemption command omits
	// the per-junction clearance.
	DefaultClearanceSeconds int

	// MaxPreemptionSeconds caps a preemption's total countdown
	// (clearance times route length).
	MaxPreemptionSeconds int

	// OverrideDurations maps each action to its auto-expiry when the
	// operator gives no duration.
	OverrideDurations map[OverrideAction]int

	// TickWorkers bounds how many junctions are ticked in parallel.
	TickWorkers int
}

// DefaultConfig returns the standard timings: 120s recovery, 45s clearance
// per junction capped at one hour per preemption, and HOLD 60s, SKIP 30s,
// FORCE_ALL_RED 45s, EXTEND_GREEN 40s.
func DefaultConfig() Config {
	return Config{
		RecoverySeconds:         120,
		DefaultClearanceSeconds: 45,
		MaxPreemptionSeconds:    3600,
		OverrideDurations: map[OverrideAction]int{
			ActionHold:        60,
			ActionSkip:        30,
			ActionForceAllRed: 45,
			ActionExtendGreen: 40,
		},
		TickWorkers: 4,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RecoverySeconds <= 0 {
		c.RecoverySeconds = def.RecoverySeconds
	}
	if c.DefaultClearanceSeconds <= 0 {
		c.DefaultClearanceSeconds = def.DefaultClearanceSeconds
	}
	if c.MaxPreemptionSeconds <= 0 {
		c.MaxPreemptionSeconds = def.MaxPreemptionSeconds
	}
	if c.TickWorkers <= 0 {
		c.TickWorkers = def.TickWorkers
	}
	durations := make(map[OverrideAction]int, len(def.OverrideDurations))
	for action, d := range def.OverrideDurations {
		if custom := c.OverrideDurations[action]; custom > 0 {
			d = custom
		}
		durations[action] = d
	}
	c.OverrideDurations = durations
	return c
}

// preemptionEntry tracks how many junctions are PREEMPTED by, or
// RECOVERING from, a request.
type preemptionEntry struct {
	req     *PreemptionRequest
	holders int
}

// Engine arbitrates control of every junction in its phase table.
//
// Each junction has its own lock. Commands spanning several junctions
// lock them in sorted ID order, then take prMu; nothing takes a junction
// lock while holding prMu.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	table *PhaseTable
	cfg   Config
	slots map[string]*junctionSlot
	order []*junctionSlot // sorted by junction ID

	prMu        sync.Mutex
	preemptions map[string]*preemptionEntry

	sinkMu sync.RWMutex
	sinks  []EventSink
	seq    atomic.Uint64

	logger Logger
	clock  func() time.Time
}

// NewEngine creates an engine with every junction AUTOMATIC at its first
// phase.
//
// Parameters:
//   - table: Phase sequences for all junctions (must be non-empty)
//   - cfg: Timing policy; zero fields take defaults
//
// Returns:
//   - *Engine: Ready engine; call Tick once per second to drive it
//   - error: If the table is nil or empty
func NewEngine(table *PhaseTable, cfg Config) (*Engine, error) {
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("%w: phase table is empty", ErrInvalidRequest)
	}
	e := &Engine{
		table:       table,
		cfg:         cfg.withDefaults(),
		slots:       make(map[string]*junctionSlot, table.Len()),
		preemptions: make(map[string]*preemptionEntry),
		logger:      noopLogger{},
		clock:       func() time.Time { return time.Now().UTC() },
	}
	for _, id := range table.IDs() {
		s := newJunctionSlot(id, table.sequences[id])
		e.slots[id] = s
		e.order = append(e.order, s)
	}
	return e, nil
}

// SetLogger sets the logger. Not safe to call concurrently with commands.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	e.logger = logger
}

// SetClock replaces the timestamp source used by commands.
// Not safe to call concurrently with commands.
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// AddSink registers an event sink. Sinks receive events in registration order.
func (e *Engine) AddSink(sink EventSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// Config returns the effective timing policy.
func (e *Engine) Config() Config {
	c := e.cfg
	c.OverrideDurations = make(map[OverrideAction]int, len(e.cfg.OverrideDurations))
	for k, v := range e.cfg.OverrideDurations {
		c.OverrideDurations[k] = v
	}
	return c
}

// PhaseTable returns the engine's immutable phase table.
func (e *Engine) PhaseTable() *PhaseTable { return e.table }

// JunctionIDs returns every junction ID in sorted order.
func (e *Engine) JunctionIDs() []string { return e.table.IDs() }

func (e *Engine) slot(junctionID string) (*junctionSlot, error) {
	s, ok := e.slots[junctionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJunction, junctionID)
	}
	return s, nil
}

// Tick advances every junction by one second.
//
// Junctions are ticked in parallel, up to Config.TickWorkers at a time,
// each under its own lock. Events are emitted after all junctions finish,
// in junction ID order. If ctx is cancelled mid-tick, junctions not yet
// started are skipped and ctx's error is returned.
//
// Parameters:
//   - ctx: Cancels the tick
//   - now: Timestamp recorded on events and snapshots
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	results := make([][]Event, len(e.order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.TickWorkers)
	for i, s := range e.order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.tickJunction(s, now)
			return nil
		})
	}
	err := g.Wait()

	var events []Event
	for _, evs := range results {
		events = append(events, evs...)
	}
	e.emit(events)
	return err
}

// tickJunction dispatches one second to the source that governs s.
func (e *Engine) tickJunction(s *junctionSlot, now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	switch s.state.control {
	case StateAutomatic:
		s.advanceAutomatic()
	case StateOverridden:
		events = s.advanceOverride(now)
	case StatePreempted:
		events = s.advancePreemption(e.cfg.RecoverySeconds, now)
	case StateRecovering:
		var done *PreemptionRequest
		events, done = s.advanceRecovery(now)
		if done != nil {
			e.releasePreemption(done.ID)
		}
	}
	s.updatedAt = now
	s.assertInvariants()
	e.sequence(events)
	return events
}

// sequence stamps Seq on events. Callers hold the lock of every junction
// the events concern.
func (e *Engine) sequence(events []Event) {
	for i := range events {
		events[i].Seq = e.seq.Add(1)
	}
}

// emit delivers events to every sink. A panicking sink is logged and
// skipped for that event.
func (e *Engine) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	e.sinkMu.RLock()
	sinks := append([]EventSink(nil), e.sinks...)
	e.sinkMu.RUnlock()

	for _, ev := range events {
		e.logger.Debug("control event",
			"type", string(ev.Type),
			"junction_id", ev.JunctionID,
			"control_state", string(ev.ControlState),
		)
		for _, sink := range sinks {
			e.deliver(sink, ev)
		}
	}
}

func (e *Engine) deliver(sink EventSink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event sink panicked",
				"type", string(ev.Type),
				"junction_id", ev.JunctionID,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	sink.Emit(ev)
}
