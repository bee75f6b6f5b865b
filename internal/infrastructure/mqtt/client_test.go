package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "nexusgrid-test",
		},
		QoS:       1,
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
	}
}

// requireBroker skips the test when no broker listens on the test address.
func requireBroker(t *testing.T, cfg config.MQTTConfig) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", strings.TrimPrefix(brokerURL(cfg), "tcp://"), 500*time.Millisecond)
	if err != nil {
		t.Skipf("no MQTT broker at %s: %v", brokerURL(cfg), err)
	}
	conn.Close() //nolint:errcheck // reachability check only
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	l.lines = append(l.lines, level+" "+msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("INFO", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("WARN", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("ERROR", msg) }

// ─── Topics ─────────────────────────────────────────────────────────

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name, got, want string
	}{
		{"CoreEvent", topics.CoreEvent("preemption_activated"), "nexusgrid/core/event/preemption_activated"},
		{"JunctionState", topics.JunctionState("J001"), "nexusgrid/core/junction/J001/state"},
		{"Response", topics.Response("req-1"), "nexusgrid/response/req-1"},
		{"OverrideCommand", topics.OverrideCommand("J002"), "nexusgrid/command/override/J002"},
		{"OverrideCancel", topics.OverrideCancel("J002"), "nexusgrid/command/override/J002/cancel"},
		{"PreemptionCommand", topics.PreemptionCommand(), "nexusgrid/command/preemption"},
		{"PreemptionCancel", topics.PreemptionCancel("p-1"), "nexusgrid/command/preemption/p-1/cancel"},
		{"SystemStatus", topics.SystemStatus(), "nexusgrid/system/status"},
		{"AllOverrideCommands", topics.AllOverrideCommands(), "nexusgrid/command/override/+"},
		{"AllOverrideCancels", topics.AllOverrideCancels(), "nexusgrid/command/override/+/cancel"},
		{"AllPreemptionCancels", topics.AllPreemptionCancels(), "nexusgrid/command/preemption/+/cancel"},
		{"AllCoreEvents", topics.AllCoreEvents(), "nexusgrid/core/event/+"},
		{"AllJunctionStates", topics.AllJunctionStates(), "nexusgrid/core/junction/+/state"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestSegment(t *testing.T) {
	topic := Topics{}.OverrideCancel("J003")
	tests := []struct {
		index int
		want  string
	}{
		{0, "nexusgrid"},
		{3, "J003"},
		{4, "cancel"},
		{5, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := Segment(topic, tt.index); got != tt.want {
			t.Errorf("Segment(%q, %d) = %q, want %q", topic, tt.index, got, tt.want)
		}
	}
}

// ─── Options ────────────────────────────────────────────────────────

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "core", Password: "pw"}
	cfg.Reconnect.MaxDelay = 30

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "nexusgrid-test" || opts.Username != "core" || opts.Password != "pw" {
		t.Errorf("identity = %s/%s/%s", opts.ClientID, opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Error("expected clean session with auto-reconnect")
	}
	if opts.MaxReconnectInterval != 30*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 30s", opts.MaxReconnectInterval)
	}
	if !opts.WillEnabled || opts.WillTopic != "nexusgrid/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	var will StatusMessage
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if will.Status != StatusOffline || will.Reason != "unexpected_disconnect" || will.ClientID != "nexusgrid-test" {
		t.Errorf("will = %+v", will)
	}
}

func TestBrokerURL_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() = %q", got)
	}
	if opts := buildClientOptions(cfg); opts.TLSConfig == nil {
		t.Error("TLSConfig not set for TLS broker")
	}
}

// ─── Validation without a broker ────────────────────────────────────

func TestClient_ValidationBeforeConnect(t *testing.T) {
	c := newClient(testConfig())

	if err := c.Publish("", nil, 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty) = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("a/b", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(large) = %v, want ErrPublishFailed", err)
	}
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() = %v, want ErrNotConnected", err)
	}
	if err := c.PublishJSON("a/b", make(chan int), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(chan) = %v, want ErrPublishFailed", err)
	}
	if err := c.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("a/b", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() = %v, want ErrNotConnected", err)
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) = %v, want ErrInvalidTopic", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := newClient(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

func TestDispatch_RecoversPanicsAndLogsErrors(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "t/1", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t/2", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t/3", nil)

	want := []string{"ERROR mqtt handler panic recovered", "WARN mqtt handler returned error"}
	if len(logger.lines) != len(want) {
		t.Fatalf("log lines = %v, want %v", logger.lines, want)
	}
	for i := range want {
		if logger.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, logger.lines[i], want[i])
		}
	}
}

// ─── Broker round trip (skipped without a broker) ───────────────────

func TestBroker_PublishSubscribeRoundtrip(t *testing.T) {
	cfg := testConfig()
	requireBroker(t, cfg)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	received := make(chan string, 1)
	topic := Topics{}.OverrideCommand("J-roundtrip")
	err = client.Subscribe(Topics{}.AllOverrideCommands(), 1, func(topic string, payload []byte) error {
		received <- Segment(topic, 3) + ":" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(Topics{}.AllOverrideCommands()) {
		t.Error("subscription not tracked")
	}

	if err := client.Publish(topic, []byte(`{"action":"HOLD"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `J-roundtrip:{"action":"HOLD"}` {
			t.Errorf("received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received within 5s")
	}

	if err := client.Unsubscribe(Topics{}.AllOverrideCommands()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}
