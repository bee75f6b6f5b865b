package arbitration

import (
	"sync"
	"time"
)

// junctionState is the runtime state of one junction. Only the fields for
// the current control source are set; the automatic clock fields are
// always valid and are frozen outside AUTOMATIC.
type junctionState struct {
	control ControlState

	phaseIndex     int
	phaseRemaining int

	override          *OverrideRequest
	overrideRemaining int

	preemption          *PreemptionRequest
	preemptionRemaining int

	// recoveryFrom is the request whose completion started recovery.
	// It is kept for snapshots only; the junction no longer holds it.
	recoveryFrom      *PreemptionRequest
	recoveryRemaining int
}

// junctionSlot pairs a junction's immutable phases with its lock-guarded state.
type junctionSlot struct {
	mu        sync.Mutex
	id        string
	phases    []Phase
	state     junctionState
	updatedAt time.Time
}

func newJunctionSlot(id string, phases []Phase) *junctionSlot {
	return &junctionSlot{
		id:     id,
		phases: phases,
		state: junctionState{
			control:        StateAutomatic,
			phaseIndex:     0,
			phaseRemaining: phases[0].DurationSeconds,
		},
	}
}

// returnToAutomatic clears every non-automatic source. The automatic
// clock resumes from where it was frozen.
func (s *junctionSlot) returnToAutomatic() {
	s.state.control = StateAutomatic
	s.state.override = nil
	s.state.overrideRemaining = 0
	s.state.preemption = nil
	s.state.preemptionRemaining = 0
	s.state.recoveryFrom = nil
	s.state.recoveryRemaining = 0
}
