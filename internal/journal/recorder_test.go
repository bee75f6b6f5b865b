package journal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// mockRepo captures appended events. When gate is non-nil Append blocks
// until it is closed.
type mockRepo struct {
	mu     sync.Mutex
	events []arbitration.Event
	gate   chan struct{}
	err    error
}

func (m *mockRepo) Append(_ context.Context, ev arbitration.Event) error {
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockRepo) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type countingLogger struct {
	mu     sync.Mutex
	warns  int
	errors int
}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *countingLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func TestRecorder_WritesInOrder(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, 10)

	for _, id := range []string{"a", "b", "c"} {
		rec.Emit(event(id, arbitration.EventOverrideActivated, "J001", 0))
	}
	rec.Close()

	if repo.count() != 3 {
		t.Fatalf("written = %d, want 3", repo.count())
	}
	for i, id := range []string{"a", "b", "c"} {
		if repo.events[i].ID != id {
			t.Errorf("events[%d] = %s, want %s", i, repo.events[i].ID, id)
		}
	}
	if rec.Written() != 3 {
		t.Errorf("Written() = %d, want 3", rec.Written())
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	repo := &mockRepo{gate: make(chan struct{})}
	logger := &countingLogger{}
	rec := NewRecorder(repo, 1)
	rec.SetLogger(logger)

	// The writer takes at most one event off the queue and blocks on the
	// gate, so at most two are held and the rest are dropped.
	for i := range 10 {
		rec.Emit(event(string(rune('a'+i)), arbitration.EventOverrideActivated, "J001", 0))
	}

	close(repo.gate)
	rec.Close()

	dropped := rec.Dropped()
	if dropped < 8 {
		t.Errorf("Dropped() = %d, want at least 8", dropped)
	}
	if got := uint64(repo.count()) + dropped; got != 10 {
		t.Errorf("written + dropped = %d, want 10", got)
	}
	if logger.warns != int(dropped) {
		t.Errorf("warns = %d, want %d", logger.warns, dropped)
	}
}

func TestRecorder_EmitAfterClose(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, 4)
	rec.Close()
	rec.Close()

	rec.Emit(event("late", arbitration.EventOverrideActivated, "J001", 0))
	if repo.count() != 0 {
		t.Errorf("written = %d, want 0", repo.count())
	}
	if rec.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", rec.Dropped())
	}
}

func TestRecorder_LogsWriteErrors(t *testing.T) {
	repo := &mockRepo{err: errors.New("disk full")}
	logger := &countingLogger{}
	rec := NewRecorder(repo, 4)
	rec.SetLogger(logger)

	rec.Emit(event("a", arbitration.EventOverrideActivated, "J001", 0))
	rec.Close()

	if logger.errors != 1 {
		t.Errorf("errors logged = %d, want 1", logger.errors)
	}
	if rec.Written() != 0 {
		t.Errorf("Written() = %d, want 0", rec.Written())
	}
}

func TestRecorder_WithEngine(t *testing.T) {
	repo := setupRepo(t)
	rec := NewRecorder(repo, 16)

	table, err := arbitration.NewPhaseTable(map[string][]arbitration.Phase{
		"J001": {{ID: "A", DurationSeconds: 30}, {ID: "B", DurationSeconds: 30}},
	})
	if err != nil {
		t.Fatalf("NewPhaseTable() error = %v", err)
	}
	engine, err := arbitration.NewEngine(table, arbitration.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	engine.AddSink(rec)

	o, err := engine.ActivateOverride("J001", arbitration.ActionHold, 5)
	if err != nil {
		t.Fatalf("ActivateOverride() error = %v", err)
	}
	if err := engine.CancelOverride("J001"); err != nil {
		t.Fatalf("CancelOverride() error = %v", err)
	}
	rec.Close()

	res, err := repo.List(context.Background(), Filter{OverrideID: o.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2", res.Total)
	}
	types := map[arbitration.EventType]bool{}
	for _, ev := range res.Events {
		types[ev.Type] = true
	}
	if !types[arbitration.EventOverrideActivated] || !types[arbitration.EventOverrideCancelled] {
		t.Errorf("types = %v", types)
	}
}
