package arbitration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivateOverride puts a junction under operator control.
//
// The automatic clock freezes where it is. The override expires on its own
// after durationSeconds ticks; zero selects the action's default duration.
//
// Parameters:
//   - junctionID: Target junction
//   - action: HOLD, SKIP, FORCE_ALL_RED or EXTEND_GREEN
//   - durationSeconds: Auto-expiry in seconds, or 0 for the default
//
// Returns:
//   - *OverrideRequest: The accepted override
//   - error: ErrInvalidRequest, ErrUnknownJunction, or ErrBusy when the
//     junction is PREEMPTED, RECOVERING or already OVERRIDDEN
func (e *Engine) ActivateOverride(junctionID string, action OverrideAction, durationSeconds int) (*OverrideRequest, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown override action %q", ErrInvalidRequest, action)
	}
	if durationSeconds < 0 {
		return nil, fmt.Errorf("%w: override duration must be positive", ErrInvalidRequest)
	}
	if durationSeconds == 0 {
		durationSeconds = e.cfg.OverrideDurations[action]
	}
	s, err := e.slot(junctionID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	req := &OverrideRequest{
		ID:              uuid.New().String(),
		JunctionID:      junctionID,
		Action:          action,
		DurationSeconds: durationSeconds,
		IssuedAt:        now,
	}

	s.mu.Lock()
	if s.state.control != StateAutomatic {
		state := s.state.control
		s.mu.Unlock()
		e.logger.Info("override rejected",
			"junction_id", junctionID,
			"action", string(action),
			"control_state", string(state),
		)
		return nil, fmt.Errorf("%w: junction %s is %s", ErrBusy, junctionID, state)
	}
	s.state.control = StateOverridden
	s.state.override = req
	s.state.overrideRemaining = durationSeconds
	s.updatedAt = now
	s.assertInvariants()
	events := []Event{overrideEvent(EventOverrideActivated, req, StateOverridden, now)}
	e.sequence(events)
	s.mu.Unlock()

	e.logger.Info("override activated",
		"junction_id", junctionID,
		"override_id", req.ID,
		"action", string(action),
		"duration_seconds", durationSeconds,
	)
	e.emit(events)
	return req, nil
}

// CancelOverride ends the junction's override and resumes automatic
// control from the frozen phase.
//
// Returns ErrNotFound if no override is active.
func (e *Engine) CancelOverride(junctionID string) error {
	s, err := e.slot(junctionID)
	if err != nil {
		return err
	}

	now := e.clock()
	s.mu.Lock()
	req := s.state.override
	if s.state.control != StateOverridden || req == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no active override on junction %s", ErrNotFound, junctionID)
	}
	s.returnToAutomatic()
	s.updatedAt = now
	s.assertInvariants()
	events := []Event{overrideEvent(EventOverrideCancelled, req, StateAutomatic, now)}
	e.sequence(events)
	s.mu.Unlock()

	e.logger.Info("override cancelled", "junction_id", junctionID, "override_id", req.ID)
	e.emit(events)
	return nil
}

// advanceOverride counts the override down one second and expires it at
// zero. Overrides return straight to AUTOMATIC with no recovery.
func (s *junctionSlot) advanceOverride(now time.Time) []Event {
	s.state.overrideRemaining--
	if s.state.overrideRemaining > 0 {
		return nil
	}
	req := s.state.override
	s.returnToAutomatic()
	return []Event{overrideEvent(EventOverrideExpired, req, StateAutomatic, now)}
}
