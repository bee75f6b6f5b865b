package influxdb

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/config"
)

var testTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

type fakeServer struct {
	healthy bool
	err     error
	closed  bool
}

func (f *fakeServer) Ping(context.Context) (bool, error) { return f.healthy, f.err }
func (f *fakeServer) Close()                             { f.closed = true }

func newTestClient() (*Client, *fakeWriter, *fakeServer) {
	w := &fakeWriter{}
	s := &fakeServer{healthy: true}
	return newClient(s, w, config.InfluxDBConfig{Enabled: true}), w, s
}

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

// ─── Points ─────────────────────────────────────────────────────────

func TestJunctionStatePoint(t *testing.T) {
	phase := arbitration.Phase{ID: "B", DurationSeconds: 20}
	tests := []struct {
		name      string
		snap      arbitration.Snapshot
		wantPhase string
		wantState string
	}{
		{
			name: "automatic shows phase id",
			snap: arbitration.Snapshot{
				JunctionID:   "J001",
				ControlState: arbitration.StateAutomatic,
				CurrentPhase: arbitration.CurrentPhase{Indication: arbitration.IndicationPhase, Phase: &phase},
			},
			wantPhase: "B",
			wantState: "AUTOMATIC",
		},
		{
			name: "preempted shows indication",
			snap: arbitration.Snapshot{
				JunctionID:   "J001",
				ControlState: arbitration.StatePreempted,
				CurrentPhase: arbitration.CurrentPhase{Indication: arbitration.IndicationPreemption},
			},
			wantPhase: "PREEMPTION",
			wantState: "PREEMPTED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := JunctionStatePoint(tt.snap, testTime)
			if p.Name() != MeasurementJunctionState {
				t.Errorf("Name() = %q", p.Name())
			}
			got := tags(p)
			if got["phase_id"] != tt.wantPhase || got["control_state"] != tt.wantState || got["junction_id"] != "J001" {
				t.Errorf("tags = %v", got)
			}
			if !p.Time().Equal(testTime) {
				t.Errorf("Time() = %v", p.Time())
			}
		})
	}
}

func TestJunctionStatePoint_Fields(t *testing.T) {
	p := JunctionStatePoint(arbitration.Snapshot{
		JunctionID:                "J002",
		ControlState:              arbitration.StateOverridden,
		CurrentPhase:              arbitration.CurrentPhase{Indication: arbitration.IndicationAllRed},
		RemainingSeconds:          12,
		AutomaticRemainingSeconds: 7,
		AutomaticPhaseIndex:       2,
		CycleProgressPercent:      62.5,
	}, testTime)

	got := fields(p)
	want := map[string]any{
		"remaining_seconds":           int64(12),
		"automatic_remaining_seconds": int64(7),
		"phase_index":                 int64(2),
		"cycle_progress_percent":      62.5,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %v (%T), want %v", k, got[k], got[k], v)
		}
	}
}

func TestControlEventPoint(t *testing.T) {
	ev := arbitration.Event{
		ID:              "ev-1",
		Type:            arbitration.EventPreemptionActivated,
		JunctionID:      "J003",
		PreemptionID:    "pre-1",
		VehicleClass:    arbitration.ClassHigh,
		DurationSeconds: 90,
		OccurredAt:      testTime,
	}
	p := ControlEventPoint(ev)

	if p.Name() != MeasurementControlEvents {
		t.Errorf("Name() = %q", p.Name())
	}
	gotTags := tags(p)
	if gotTags["event_type"] != "preemption_activated" || gotTags["vehicle_class"] != "HIGH" {
		t.Errorf("tags = %v", gotTags)
	}
	if _, ok := gotTags["action"]; ok {
		t.Error("action tag set for preemption event")
	}
	gotFields := fields(p)
	if gotFields["preemption_id"] != "pre-1" || gotFields["duration_seconds"] != int64(90) {
		t.Errorf("fields = %v", gotFields)
	}
	if _, ok := gotFields["override_id"]; ok {
		t.Error("override_id field set for preemption event")
	}
	if !p.Time().Equal(testTime) {
		t.Errorf("Time() = %v", p.Time())
	}
}

// ─── Client ─────────────────────────────────────────────────────────

func TestClient_ObserveTickAndEmit(t *testing.T) {
	c, w, _ := newTestClient()

	c.ObserveTick(context.Background(), testTime, []arbitration.Snapshot{
		{JunctionID: "J001", ControlState: arbitration.StateAutomatic},
		{JunctionID: "J002", ControlState: arbitration.StateAutomatic},
	})
	c.Emit(arbitration.Event{ID: "e", Type: arbitration.EventOverrideExpired, JunctionID: "J001", OccurredAt: testTime})

	if len(w.points) != 3 {
		t.Fatalf("points = %d, want 3", len(w.points))
	}
	if w.points[2].Name() != MeasurementControlEvents {
		t.Errorf("last point = %s, want control_events", w.points[2].Name())
	}
}

func TestClient_CloseFlushesOnce(t *testing.T) {
	c, w, s := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if w.flushes != 1 || !s.closed {
		t.Errorf("flushes = %d, closed = %v", w.flushes, s.closed)
	}

	c.WriteControlEvent(arbitration.Event{ID: "late"})
	c.Flush()
	if len(w.points) != 0 || w.flushes != 1 {
		t.Errorf("writes after Close reached the writer")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	c, _, s := newTestClient()
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v, want nil", err)
	}

	s.healthy = false
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on unhealthy server: expected error")
	}

	s.err = errors.New("connection refused")
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on ping error: expected error")
	}
}

func TestClient_ForwardErrors(t *testing.T) {
	c, _, _ := newTestClient()
	var got []error
	c.SetOnError(func(err error) { got = append(got, err) })

	errs := make(chan error, 2)
	errs <- errors.New("write 1")
	errs <- errors.New("write 2")
	close(errs)
	c.forwardErrors(errs)

	if len(got) != 2 {
		t.Errorf("callback calls = %d, want 2", len(got))
	}
}

func TestConnect_Disabled(t *testing.T) {
	if _, err := Connect(config.InfluxDBConfig{Enabled: false}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() = %v, want ErrDisabled", err)
	}
}

// ─── Live server (skipped unless INFLUXDB_TEST_URL is set) ──────────

func TestConnect_LiveServer(t *testing.T) {
	url := os.Getenv("INFLUXDB_TEST_URL")
	if url == "" {
		t.Skip("INFLUXDB_TEST_URL not set")
	}
	c, err := Connect(config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         os.Getenv("INFLUXDB_TEST_TOKEN"),
		Org:           "nexusgrid",
		Bucket:        "telemetry",
		FlushInterval: 1,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close() //nolint:errcheck // test cleanup

	c.WriteJunctionState(arbitration.Snapshot{JunctionID: "J-test", ControlState: arbitration.StateAutomatic}, time.Now())
	c.Flush()
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}
