package arbitration

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a control transition reported to collaborators.
type EventType string

const (
	EventPreemptionActivated EventType = "preemption_activated"
	EventPreemptionCompleted EventType = "preemption_completed"
	EventPreemptionCancelled EventType = "preemption_cancelled"
	EventPreemptionDisplaced EventType = "preemption_displaced"
	EventOverrideActivated   EventType = "override_activated"
	EventOverrideExpired     EventType = "override_expired"
	EventOverrideCancelled   EventType = "override_cancelled"
	EventOverrideDiscarded   EventType = "override_discarded"
	EventRecoveryStarted     EventType = "recovery_started"
	EventRecoveryCompleted   EventType = "recovery_completed"
)

// Event is emitted once per junction per transition. Fields that do not
// apply to the event type are left empty.
type Event struct {
	ID               string         `json:"id"`
	Type             EventType      `json:"type"`
	JunctionID       string         `json:"junction_id"`
	ControlState     ControlState   `json:"control_state"`
	PreemptionID     string         `json:"preemption_id,omitempty"`
	OverrideID       string         `json:"override_id,omitempty"`
	Action           OverrideAction `json:"action,omitempty"`
	VehicleClass     VehicleClass   `json:"vehicle_class,omitempty"`
	RouteJunctionIDs []string       `json:"route_junction_ids,omitempty"`
	DurationSeconds  int            `json:"duration_seconds,omitempty"`
	OccurredAt       time.Time      `json:"occurred_at"`

	// Seq increases in the order transitions were applied by one engine.
	Seq uint64 `json:"seq"`
}

// EventSink receives engine events. Emit is called synchronously after the
// engine has released its locks, so a sink may call back into the engine.
// Slow sinks delay the caller and should queue internally.
//
// Events from one call arrive in order. Events from concurrent calls may
// interleave, so a cancel can reach a sink before the activation it
// follows. Order by Seq when it matters: for any one junction a later
// transition always carries a higher Seq.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Emit calls f(ev).
func (f EventSinkFunc) Emit(ev Event) { f(ev) }

func newEvent(typ EventType, junctionID string, state ControlState, at time.Time) Event {
	return Event{
		ID:           uuid.New().String(),
		Type:         typ,
		JunctionID:   junctionID,
		ControlState: state,
		OccurredAt:   at,
	}
}

func overrideEvent(typ EventType, o *OverrideRequest, state ControlState, at time.Time) Event {
	ev := newEvent(typ, o.JunctionID, state, at)
	ev.OverrideID = o.ID
	ev.Action = o.Action
	ev.DurationSeconds = o.DurationSeconds
	return ev
}

func preemptionEvent(typ EventType, junctionID string, p *PreemptionRequest, state ControlState, at time.Time) Event {
	ev := newEvent(typ, junctionID, state, at)
	ev.PreemptionID = p.ID
	ev.VehicleClass = p.VehicleClass
	ev.RouteJunctionIDs = append([]string(nil), p.RouteJunctionIDs...)
	ev.DurationSeconds = p.DurationSeconds()
	return ev
}
