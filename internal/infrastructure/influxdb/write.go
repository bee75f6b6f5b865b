package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// Measurement names.
const (
	MeasurementJunctionState = "junction_state"
	MeasurementControlEvents = "control_events"
)

// JunctionStatePoint converts a snapshot into a junction_state point at ts.
// The phase_id tag is the live phase, or the indication when no phase of
// the cycle is showing (ALL_RED, PREEMPTION, RECOVERY).
func JunctionStatePoint(s arbitration.Snapshot, ts time.Time) *write.Point {
	phaseID := string(s.CurrentPhase.Indication)
	if s.CurrentPhase.Phase != nil {
		phaseID = s.CurrentPhase.Phase.ID
	}
	return write.NewPoint(MeasurementJunctionState,
		map[string]string{
			"junction_id":   s.JunctionID,
			"control_state": string(s.ControlState),
			"phase_id":      phaseID,
		},
		map[string]any{
			"remaining_seconds":           s.RemainingSeconds,
			"automatic_remaining_seconds": s.AutomaticRemainingSeconds,
			"phase_index":                 s.AutomaticPhaseIndex,
			"cycle_progress_percent":      s.CycleProgressPercent,
		},
		ts)
}

// ControlEventPoint converts an engine event into a control_events point.
func ControlEventPoint(ev arbitration.Event) *write.Point {
	tags := map[string]string{
		"junction_id": ev.JunctionID,
		"event_type":  string(ev.Type),
	}
	if ev.VehicleClass != "" {
		tags["vehicle_class"] = string(ev.VehicleClass)
	}
	if ev.Action != "" {
		tags["action"] = string(ev.Action)
	}

	fields := map[string]any{
		"event_id":         ev.ID,
		"duration_seconds": ev.DurationSeconds,
	}
	if ev.PreemptionID != "" {
		fields["preemption_id"] = ev.PreemptionID
	}
	if ev.OverrideID != "" {
		fields["override_id"] = ev.OverrideID
	}
	return write.NewPoint(MeasurementControlEvents, tags, fields, ev.OccurredAt)
}

// WriteJunctionState queues one junction_state point.
func (c *Client) WriteJunctionState(s arbitration.Snapshot, ts time.Time) {
	c.writePoint(JunctionStatePoint(s, ts))
}

// WriteControlEvent queues one control_events point.
func (c *Client) WriteControlEvent(ev arbitration.Event) {
	c.writePoint(ControlEventPoint(ev))
}

// ObserveTick writes every snapshot with the tick time. It has the
// arbitration.TickObserver signature.
func (c *Client) ObserveTick(_ context.Context, now time.Time, snapshots []arbitration.Snapshot) {
	for _, s := range snapshots {
		c.WriteJunctionState(s, now)
	}
}

// Emit implements arbitration.EventSink.
func (c *Client) Emit(ev arbitration.Event) {
	c.WriteControlEvent(ev)
}
