package arbitration

import (
	"fmt"
	"strings"
	"time"
)

// ControlState identifies which control source governs a junction.
type ControlState string

const (
	StateAutomatic  ControlState = "AUTOMATIC"
	StateOverridden ControlState = "OVERRIDDEN"
	StatePreempted  ControlState = "PREEMPTED"
	StateRecovering ControlState = "RECOVERING"
)

// OverrideAction is the operator command carried by an override.
type OverrideAction string

const (
	// ActionHold freezes the current phase.
	ActionHold OverrideAction = "HOLD"
	// ActionSkip jumps the displayed indication to the next phase.
	ActionSkip OverrideAction = "SKIP"
	// ActionForceAllRed shows red on every approach.
	ActionForceAllRed OverrideAction = "FORCE_ALL_RED"
	// ActionExtendGreen keeps the current green beyond its nominal duration.
	ActionExtendGreen OverrideAction = "EXTEND_GREEN"
)

// OverrideActions lists every action in display order.
var OverrideActions = []OverrideAction{ActionHold, ActionSkip, ActionForceAllRed, ActionExtendGreen}

// Valid reports whether a is a known action.
func (a OverrideAction) Valid() bool {
	switch a {
	case ActionHold, ActionSkip, ActionForceAllRed, ActionExtendGreen:
		return true
	}
	return false
}

// ParseOverrideAction accepts the canonical names case-insensitively, with
// "-" or " " as separators, plus the dashboard's "force-off" and "extend".
func ParseOverrideAction(s string) (OverrideAction, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s)))
	switch norm {
	case "FORCE_OFF":
		return ActionForceAllRed, nil
	case "EXTEND":
		return ActionExtendGreen, nil
	}
	a := OverrideAction(norm)
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown override action %q", ErrInvalidRequest, s)
	}
	return a, nil
}

// VehicleClass ranks emergency vehicles for preemption arbitration.
// CRITICAL > HIGH > MEDIUM > LOW.
type VehicleClass string

const (
	ClassCritical VehicleClass = "CRITICAL"
	ClassHigh     VehicleClass = "HIGH"
	ClassMedium   VehicleClass = "MEDIUM"
	ClassLow      VehicleClass = "LOW"
)

// Rank returns the class priority; higher wins. Unknown classes rank 0.
func (c VehicleClass) Rank() int {
	switch c {
	case ClassCritical:
		return 4
	case ClassHigh:
		return 3
	case ClassMedium:
		return 2
	case ClassLow:
		return 1
	}
	return 0
}

// Valid reports whether c is a known class.
func (c VehicleClass) Valid() bool { return c.Rank() > 0 }

// Outranks reports whether c strictly beats other.
func (c VehicleClass) Outranks(other VehicleClass) bool { return c.Rank() > other.Rank() }

// UnmarshalText upper-cases the class so YAML and JSON may use "critical".
// Validity is checked by the consumer.
func (c *VehicleClass) UnmarshalText(b []byte) error {
	*c = VehicleClass(strings.ToUpper(strings.TrimSpace(string(b))))
	return nil
}

// ParseVehicleClass accepts class names case-insensitively.
func ParseVehicleClass(s string) (VehicleClass, error) {
	c := VehicleClass(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown vehicle class %q", ErrInvalidRequest, s)
	}
	return c, nil
}

// Phase is one interval of a junction's signal cycle. Immutable.
type Phase struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
}

// OverrideRequest is an operator command on a single junction.
type OverrideRequest struct {
	ID              string         `json:"id"`
	JunctionID      string         `json:"junction_id"`
	Action          OverrideAction `json:"action"`
	DurationSeconds int            `json:"duration_seconds"`
	IssuedAt        time.Time      `json:"issued_at"`
}

// PreemptionCommand asks for emergency control along a route.
// Zero ClearanceSecondsPerJunction selects the engine default.
type PreemptionCommand struct {
	RouteJunctionIDs            []string
	VehicleClass                VehicleClass
	ClearanceSecondsPerJunction int
}

// PreemptionRequest is an accepted preemption. It is shared by pointer
// across every junction on its route and never modified after creation;
// each junction keeps its own countdown.
type PreemptionRequest struct {
	ID                          string       `json:"id"`
	RouteJunctionIDs            []string     `json:"route_junction_ids"`
	VehicleClass                VehicleClass `json:"vehicle_class"`
	ClearanceSecondsPerJunction int          `json:"clearance_seconds_per_junction"`
	IssuedAt                    time.Time    `json:"issued_at"`
}

// DurationSeconds is the countdown each route junction starts with.
func (p *PreemptionRequest) DurationSeconds() int {
	return p.ClearanceSecondsPerJunction * len(p.RouteJunctionIDs)
}

// covers reports whether junctionID is on the route.
func (p *PreemptionRequest) covers(junctionID string) bool {
	for _, id := range p.RouteJunctionIDs {
		if id == junctionID {
			return true
		}
	}
	return false
}
