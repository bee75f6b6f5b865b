package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/mqtt"
)

// mockMQTT captures publishes and subscriptions.
type mockMQTT struct {
	mu        sync.Mutex
	published []message
	handlers  map[string]mqtt.MessageHandler
	failSub   string
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, message{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if topic == m.failSub {
		return errors.New("subscribe refused")
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func newTestEngine(t *testing.T) *arbitration.Engine {
	t.Helper()
	table, err := arbitration.NewPhaseTable(map[string][]arbitration.Phase{
		"J001": {{ID: "A", DurationSeconds: 30}, {ID: "B", DurationSeconds: 20}},
		"J002": {{ID: "A", DurationSeconds: 30}, {ID: "B", DurationSeconds: 20}},
	})
	if err != nil {
		t.Fatalf("NewPhaseTable() error = %v", err)
	}
	engine, err := arbitration.NewEngine(table, arbitration.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

// newTestBridge wires a bridge to a real engine and dispatcher without
// starting the publisher; drain reads the outbox synchronously.
func newTestBridge(t *testing.T) (*Bridge, *mockMQTT, *arbitration.Engine) {
	t.Helper()
	engine := newTestEngine(t)
	client := newMockMQTT()
	b := New(client, command.NewDispatcher(engine, nil), engine)
	engine.AddSink(b)
	if err := b.subscribe(); err != nil {
		t.Fatalf("subscribe() error = %v", err)
	}
	return b, client, engine
}

func drain(b *Bridge) []message {
	var out []message
	for {
		select {
		case msg := <-b.outbox:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func find(msgs []message, topic string) (message, bool) {
	for _, m := range msgs {
		if m.topic == topic {
			return m, true
		}
	}
	return message{}, false
}

func decodeResult(t *testing.T, msgs []message, requestID string) command.Result {
	t.Helper()
	msg, ok := find(msgs, mqtt.Topics{}.Response(requestID))
	if !ok {
		t.Fatalf("no response for %s in %d messages", requestID, len(msgs))
	}
	var res command.Result
	if err := json.Unmarshal(msg.payload, &res); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return res
}

func (m *mockMQTT) deliver(t *testing.T, pattern, topic, payload string) error {
	t.Helper()
	m.mu.Lock()
	h, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no handler for %s", pattern)
	}
	return h(topic, []byte(payload))
}

// ─── Subscriptions ──────────────────────────────────────────────────

func TestStart_SubscribesCommandTopics(t *testing.T) {
	engine := newTestEngine(t)
	client := newMockMQTT()
	b := New(client, command.NewDispatcher(engine, nil), engine)

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	b.Wait()

	topics := mqtt.Topics{}
	for _, want := range []string{
		topics.AllOverrideCommands(),
		topics.AllOverrideCancels(),
		topics.PreemptionCommand(),
		topics.AllPreemptionCancels(),
	} {
		if _, ok := client.handlers[want]; !ok {
			t.Errorf("missing subscription %s", want)
		}
	}
}

func TestStart_SubscribeFailure(t *testing.T) {
	engine := newTestEngine(t)
	client := newMockMQTT()
	client.failSub = mqtt.Topics{}.PreemptionCommand()
	b := New(client, command.NewDispatcher(engine, nil), engine)

	err := b.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "nexusgrid/command/preemption") {
		t.Errorf("Start() error = %v, want subscribe failure", err)
	}
}

func TestStart_PublishOnlyWithoutCommands(t *testing.T) {
	client := newMockMQTT()
	b := New(client, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(client.handlers) != 0 {
		t.Errorf("handlers = %d, want 0", len(client.handlers))
	}

	b.Emit(arbitration.Event{ID: "e1", Type: arbitration.EventOverrideExpired, JunctionID: "J001"})
	deadline := time.Now().Add(2 * time.Second)
	for client.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	b.Wait()

	if client.count() != 1 || client.published[0].topic != "nexusgrid/core/event/override_expired" {
		t.Errorf("published = %+v", client.published)
	}
}

// ─── Egress ─────────────────────────────────────────────────────────

func TestEmit_PublishesEventAndSnapshot(t *testing.T) {
	b, _, engine := newTestBridge(t)

	if _, err := engine.ActivateOverride("J001", arbitration.ActionHold, 10); err != nil {
		t.Fatalf("ActivateOverride() error = %v", err)
	}
	msgs := drain(b)

	ev, ok := find(msgs, "nexusgrid/core/event/override_activated")
	if !ok {
		t.Fatalf("event not published: %+v", msgs)
	}
	if ev.qos != 1 || ev.retained {
		t.Errorf("event qos/retained = %d/%v, want 1/false", ev.qos, ev.retained)
	}

	state, ok := find(msgs, "nexusgrid/core/junction/J001/state")
	if !ok {
		t.Fatal("snapshot not published")
	}
	if !state.retained {
		t.Error("snapshot should be retained")
	}
	var snap arbitration.Snapshot
	if err := json.Unmarshal(state.payload, &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.ControlState != arbitration.StateOverridden {
		t.Errorf("snapshot state = %s, want OVERRIDDEN", snap.ControlState)
	}
}

func TestObserveTick_PublishesAllSnapshots(t *testing.T) {
	b, _, engine := newTestBridge(t)

	b.ObserveTick(context.Background(), time.Now(), engine.Snapshots())
	msgs := drain(b)

	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	for _, id := range []string{"J001", "J002"} {
		if _, ok := find(msgs, mqtt.Topics{}.JunctionState(id)); !ok {
			t.Errorf("missing snapshot for %s", id)
		}
	}
}

func TestEnqueue_DropsWhenOutboxFull(t *testing.T) {
	b := New(newMockMQTT(), nil, nil)
	b.outbox = make(chan message, 1)

	b.Emit(arbitration.Event{ID: "e1", Type: arbitration.EventOverrideExpired, JunctionID: "J001"})
	b.Emit(arbitration.Event{ID: "e2", Type: arbitration.EventOverrideExpired, JunctionID: "J001"})

	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}

// ─── Ingress ────────────────────────────────────────────────────────

func TestIngress_Override(t *testing.T) {
	b, client, engine := newTestBridge(t)
	topics := mqtt.Topics{}

	err := client.deliver(t, topics.AllOverrideCommands(), topics.OverrideCommand("J002"),
		`{"request_id":"r1","action":"force-off","duration_seconds":20}`)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}

	res := decodeResult(t, drain(b), "r1")
	if !res.OK || res.OverrideID == "" {
		t.Errorf("result = %+v, want ok with override id", res)
	}
	snap, _ := engine.JunctionState("J002")
	if snap.ControlState != arbitration.StateOverridden {
		t.Errorf("J002 state = %s, want OVERRIDDEN", snap.ControlState)
	}
}

func TestIngress_OverrideRejected(t *testing.T) {
	b, client, _ := newTestBridge(t)
	topics := mqtt.Topics{}

	tests := []struct {
		name     string
		junction string
		payload  string
		wantCode string
	}{
		{"unknown junction", "J999", `{"request_id":"r1","action":"HOLD"}`, command.CodeUnknownJunction},
		{"bad action", "J001", `{"request_id":"r2","action":"DANCE"}`, command.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.deliver(t, topics.AllOverrideCommands(), topics.OverrideCommand(tt.junction), tt.payload); err != nil {
				t.Fatalf("handler error = %v", err)
			}
			var req struct {
				RequestID string `json:"request_id"`
			}
			_ = json.Unmarshal([]byte(tt.payload), &req)
			res := decodeResult(t, drain(b), req.RequestID)
			if res.OK || res.Code != tt.wantCode || res.Message == "" {
				t.Errorf("result = %+v, want code %s", res, tt.wantCode)
			}
		})
	}
}

func TestIngress_MalformedPayload(t *testing.T) {
	b, client, _ := newTestBridge(t)
	topics := mqtt.Topics{}

	err := client.deliver(t, topics.PreemptionCommand(), topics.PreemptionCommand(),
		`{"request_id":"r9","route_junction_ids":"J001"}`)
	if !errors.Is(err, arbitration.ErrInvalidRequest) {
		t.Errorf("handler error = %v, want ErrInvalidRequest", err)
	}
	res := decodeResult(t, drain(b), "r9")
	if res.OK || res.Code != command.CodeInvalidRequest {
		t.Errorf("result = %+v", res)
	}
}

func TestIngress_PreemptionLifecycle(t *testing.T) {
	b, client, engine := newTestBridge(t)
	topics := mqtt.Topics{}

	err := client.deliver(t, topics.PreemptionCommand(), topics.PreemptionCommand(),
		`{"request_id":"p1","route_junction_ids":["J001","J002"],"vehicle_class":"critical","clearance_seconds_per_junction":30}`)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	res := decodeResult(t, drain(b), "p1")
	if !res.OK || res.PreemptionID == "" {
		t.Fatalf("result = %+v", res)
	}
	if got := len(engine.ActivePreemptions()); got != 1 {
		t.Fatalf("active preemptions = %d, want 1", got)
	}

	// A lower class on the same route is denied.
	err = client.deliver(t, topics.PreemptionCommand(), topics.PreemptionCommand(),
		`{"request_id":"p2","route_junction_ids":["J002"],"vehicle_class":"LOW"}`)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res2 := decodeResult(t, drain(b), "p2"); res2.Code != command.CodePreemptionDenied {
		t.Errorf("second preemption code = %q, want %q", res2.Code, command.CodePreemptionDenied)
	}

	err = client.deliver(t, topics.AllPreemptionCancels(), topics.PreemptionCancel(res.PreemptionID), `{"request_id":"c1"}`)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	msgs := drain(b)
	cancelRes := decodeResult(t, msgs, "c1")
	if !cancelRes.OK || cancelRes.PreemptionID != res.PreemptionID {
		t.Errorf("cancel result = %+v", cancelRes)
	}
	if _, ok := find(msgs, "nexusgrid/core/event/preemption_cancelled"); !ok {
		t.Error("preemption_cancelled event not published")
	}
}

func TestIngress_OverrideCancel(t *testing.T) {
	b, client, engine := newTestBridge(t)
	topics := mqtt.Topics{}

	if _, err := engine.ActivateOverride("J001", arbitration.ActionSkip, 0); err != nil {
		t.Fatalf("ActivateOverride() error = %v", err)
	}
	drain(b)

	// Empty body is accepted; no request id means no response.
	if err := client.deliver(t, topics.AllOverrideCancels(), topics.OverrideCancel("J001"), ""); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	msgs := drain(b)
	for _, m := range msgs {
		if strings.HasPrefix(m.topic, "nexusgrid/response/") {
			t.Errorf("unexpected response %s", m.topic)
		}
	}
	snap, _ := engine.JunctionState("J001")
	if snap.ControlState != arbitration.StateAutomatic {
		t.Errorf("J001 state = %s, want AUTOMATIC", snap.ControlState)
	}

	if err := client.deliver(t, topics.AllOverrideCancels(), topics.OverrideCancel("J001"), `{"request_id":"c2"}`); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res := decodeResult(t, drain(b), "c2"); res.Code != command.CodeNotFound {
		t.Errorf("second cancel code = %q, want %q", res.Code, command.CodeNotFound)
	}
}
