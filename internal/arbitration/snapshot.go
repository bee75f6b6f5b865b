package arbitration

import "time"

// Indication is what the junction's signal heads are showing.
type Indication string

const (
	// IndicationPhase shows a phase from the junction's cycle.
	IndicationPhase Indication = "PHASE"
	// IndicationAllRed shows red on every approach.
	IndicationAllRed Indication = "ALL_RED"
	// IndicationPreemption clears the route for an emergency vehicle.
	IndicationPreemption Indication = "PREEMPTION"
	// IndicationRecovery is the transition back to the automatic cycle.
	IndicationRecovery Indication = "RECOVERY"
)

// CurrentPhase describes the live indication. Phase is nil unless the
// indication is PHASE.
type CurrentPhase struct {
	Indication Indication `json:"indication"`
	Phase      *Phase     `json:"phase,omitempty"`
}

// RequestSummary describes the request governing a non-automatic junction.
type RequestSummary struct {
	Kind             string         `json:"kind"` // override, preemption or recovery
	ID               string         `json:"id"`
	Action           OverrideAction `json:"action,omitempty"`
	VehicleClass     VehicleClass   `json:"vehicle_class,omitempty"`
	RouteJunctionIDs []string       `json:"route_junction_ids,omitempty"`
	DurationSeconds  int            `json:"duration_seconds"`
	IssuedAt         time.Time      `json:"issued_at"`
}

// Snapshot is a read-only, point-in-time copy of one junction's state.
type Snapshot struct {
	JunctionID   string       `json:"junction_id"`
	ControlState ControlState `json:"control_state"`
	CurrentPhase CurrentPhase `json:"current_phase"`

	// RemainingSeconds counts down whichever source governs the junction.
	RemainingSeconds int `json:"remaining_seconds"`

	// Automatic clock position, frozen outside AUTOMATIC.
	AutomaticPhaseIndex       int     `json:"automatic_phase_index"`
	AutomaticPhase            Phase   `json:"automatic_phase"`
	AutomaticRemainingSeconds int     `json:"automatic_remaining_seconds"`
	NextPhase                 Phase   `json:"next_phase"`
	CycleProgressPercent      float64 `json:"cycle_progress_percent"`

	ActiveRequest *RequestSummary `json:"active_request,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// JunctionState returns a snapshot of one junction.
//
// Returns ErrUnknownJunction if the ID is not in the phase table.
func (e *Engine) JunctionState(junctionID string) (Snapshot, error) {
	s, err := e.slot(junctionID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), nil
}

// Snapshots returns a snapshot of every junction in ID order. Each junction
// is read under its own lock, so the set is not one atomic instant.
func (e *Engine) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(e.order))
	for _, s := range e.order {
		out = append(out, s.snapshot())
	}
	return out
}

func (s *junctionSlot) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	auto := s.currentAutomaticPhase()
	snap := Snapshot{
		JunctionID:                s.id,
		ControlState:              s.state.control,
		AutomaticPhaseIndex:       s.state.phaseIndex,
		AutomaticPhase:            auto,
		AutomaticRemainingSeconds: s.state.phaseRemaining,
		NextPhase:                 s.nextAutomaticPhase(),
		CycleProgressPercent:      s.cycleProgress(),
		UpdatedAt:                 s.updatedAt,
	}

	switch s.state.control {
	case StateAutomatic:
		snap.CurrentPhase = CurrentPhase{Indication: IndicationPhase, Phase: &auto}
		snap.RemainingSeconds = s.state.phaseRemaining

	case StateOverridden:
		o := s.state.override
		snap.CurrentPhase = overrideIndication(o.Action, auto, s.nextAutomaticPhase())
		snap.RemainingSeconds = s.state.overrideRemaining
		snap.ActiveRequest = &RequestSummary{
			Kind:            "override",
			ID:              o.ID,
			Action:          o.Action,
			DurationSeconds: o.DurationSeconds,
			IssuedAt:        o.IssuedAt,
		}

	case StatePreempted:
		snap.CurrentPhase = CurrentPhase{Indication: IndicationPreemption}
		snap.RemainingSeconds = s.state.preemptionRemaining
		snap.ActiveRequest = preemptionSummary("preemption", s.state.preemption)

	case StateRecovering:
		snap.CurrentPhase = CurrentPhase{Indication: IndicationRecovery}
		snap.RemainingSeconds = s.state.recoveryRemaining
		if s.state.recoveryFrom != nil {
			snap.ActiveRequest = preemptionSummary("recovery", s.state.recoveryFrom)
		}
	}
	return snap
}

// overrideIndication maps an override action to what the heads display:
// HOLD and EXTEND_GREEN keep the frozen phase, SKIP shows the next one,
// FORCE_ALL_RED shows all red.
func overrideIndication(action OverrideAction, frozen, next Phase) CurrentPhase {
	switch action {
	case ActionSkip:
		return CurrentPhase{Indication: IndicationPhase, Phase: &next}
	case ActionForceAllRed:
		return CurrentPhase{Indication: IndicationAllRed}
	default:
		return CurrentPhase{Indication: IndicationPhase, Phase: &frozen}
	}
}

func preemptionSummary(kind string, p *PreemptionRequest) *RequestSummary {
	return &RequestSummary{
		Kind:             kind,
		ID:               p.ID,
		VehicleClass:     p.VehicleClass,
		RouteJunctionIDs: append([]string(nil), p.RouteJunctionIDs...),
		DurationSeconds:  p.DurationSeconds(),
		IssuedAt:         p.IssuedAt,
	}
}
