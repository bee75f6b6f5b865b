package mqttbridge

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/mqtt"
)

const (
	// eventQoS is used for events and responses.
	eventQoS = 1
	// stateQoS is used for retained snapshots; the next tick supersedes a lost one.
	stateQoS = 0

	defaultOutboxSize = 512
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Commands executes collaborator commands. *command.Dispatcher satisfies it.
type Commands interface {
	Override(cmd command.OverrideCommand) (*arbitration.OverrideRequest, error)
	CancelOverride(requestID, junctionID, source string) error
	Preempt(cmd command.PreemptionCommand) (*arbitration.PreemptionRequest, error)
	CancelPreemption(requestID, preemptionID, source string) error
}

// StateReader reads junction snapshots. *arbitration.Engine satisfies it.
type StateReader interface {
	JunctionState(junctionID string) (arbitration.Snapshot, error)
}

// Logger defines the logging interface used by the Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// Bridge publishes engine output and accepts collaborator commands.
//
// It implements arbitration.EventSink (Emit) and can be registered as a
// tick observer (ObserveTick).
type Bridge struct {
	client   MQTTClient
	commands Commands
	state    StateReader
	logger   Logger
	topics   mqtt.Topics

	outbox  chan message
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// New creates a bridge. commands may be nil for a publish-only bridge.
func New(client MQTTClient, commands Commands, state StateReader) *Bridge {
	return &Bridge{
		client:   client,
		commands: commands,
		state:    state,
		logger:   noopLogger{},
		outbox:   make(chan message, defaultOutboxSize),
	}
}

// SetLogger sets the logger. Call before Start.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// Start subscribes to the command topics and starts the publisher. The
// publisher drains the outbox until ctx is cancelled; Wait blocks until
// it has stopped.
func (b *Bridge) Start(ctx context.Context) error {
	if b.commands != nil {
		if err := b.subscribe(); err != nil {
			return err
		}
	}
	b.wg.Add(1)
	go b.publishLoop(ctx)
	return nil
}

// Wait blocks until the publisher goroutine has exited.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Dropped returns how many messages were discarded on a full outbox.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }

// Emit publishes ev and the refreshed snapshot of its junction.
func (b *Bridge) Emit(ev arbitration.Event) {
	b.enqueueJSON(b.topics.CoreEvent(string(ev.Type)), ev, eventQoS, false)
	if b.state == nil {
		return
	}
	snap, err := b.state.JunctionState(ev.JunctionID)
	if err != nil {
		b.logger.Warn("snapshot for event failed", "junction_id", ev.JunctionID, "error", err)
		return
	}
	b.publishSnapshot(snap)
}

// ObserveTick republishes every snapshot. It has the arbitration.TickObserver
// signature.
func (b *Bridge) ObserveTick(_ context.Context, _ time.Time, snapshots []arbitration.Snapshot) {
	for _, snap := range snapshots {
		b.publishSnapshot(snap)
	}
}

func (b *Bridge) publishSnapshot(snap arbitration.Snapshot) {
	b.enqueueJSON(b.topics.JunctionState(snap.JunctionID), snap, stateQoS, true)
}

func (b *Bridge) enqueueJSON(topic string, v any, qos byte, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("marshalling mqtt payload failed", "topic", topic, "error", err)
		return
	}
	select {
	case b.outbox <- message{topic: topic, payload: payload, qos: qos, retained: retained}:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("mqtt outbox full, message dropped", "topic", topic, "dropped_total", n)
	}
}

func (b *Bridge) publishLoop(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.outbox:
			if err := b.client.Publish(msg.topic, msg.payload, msg.qos, msg.retained); err != nil {
				b.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
			}
		}
	}
}
