package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// appendTimeout bounds a single journal write.
const appendTimeout = 5 * time.Second

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder is an arbitration.EventSink that writes events to a Repository
// from a background goroutine, so the engine never waits on disk.
//
// Emit never blocks. When the queue is full the event is dropped and
// counted; Dropped reports the total.
type Recorder struct {
	repo   Repository
	logger Logger

	mu     sync.RWMutex
	queue  chan arbitration.Event
	closed bool

	wg      sync.WaitGroup
	dropped atomic.Uint64
	written atomic.Uint64
}

// NewRecorder creates a recorder with room for buffer pending events
// (100 if buffer is not positive) and starts its writer goroutine.
func NewRecorder(repo Repository, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 100
	}
	r := &Recorder{
		repo:   repo,
		logger: noopLogger{},
		queue:  make(chan arbitration.Event, buffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// SetLogger sets the logger. Call before events flow.
func (r *Recorder) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Emit queues ev for writing.
func (r *Recorder) Emit(ev arbitration.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("journal queue full, event dropped",
			"type", string(ev.Type),
			"junction_id", ev.JunctionID,
			"dropped_total", n,
		)
	}
}

// Close stops accepting events, writes everything already queued, and
// waits for the writer to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written returns how many events reached the repository.
func (r *Recorder) Written() uint64 { return r.written.Load() }

func (r *Recorder) run() {
	defer r.wg.Done()
	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		err := r.repo.Append(ctx, ev)
		cancel()
		if err != nil {
			r.logger.Error("journal write failed",
				"type", string(ev.Type),
				"junction_id", ev.JunctionID,
				"error", err,
			)
			continue
		}
		r.written.Add(1)
	}
}
