package arbitration

import "fmt"

// assertInvariants panics on an inconsistent junction when built with the
// arbitrationdebug tag. Callers hold s.mu.
func (s *junctionSlot) assertInvariants() {
	if !debugAssertions {
		return
	}
	if msg := s.invariantViolation(); msg != "" {
		panic(fmt.Sprintf("arbitration: junction %s: %s", s.id, msg))
	}
}

// invariantViolation returns a description of the first broken invariant,
// or "" when the state is consistent: exactly one control source active,
// matching the control state, and the automatic clock in range.
func (s *junctionSlot) invariantViolation() string {
	st := &s.state
	if st.phaseIndex < 0 || st.phaseIndex >= len(s.phases) {
		return fmt.Sprintf("phase index %d out of range [0,%d)", st.phaseIndex, len(s.phases))
	}
	if d := s.phases[st.phaseIndex].DurationSeconds; st.phaseRemaining < 1 || st.phaseRemaining > d {
		return fmt.Sprintf("automatic remaining %d outside [1,%d]", st.phaseRemaining, d)
	}

	hasOverride := st.override != nil
	hasPreemption := st.preemption != nil
	recovering := st.recoveryRemaining > 0

	switch st.control {
	case StateAutomatic:
		if hasOverride || hasPreemption || recovering || st.recoveryFrom != nil {
			return "AUTOMATIC with an active source"
		}
	case StateOverridden:
		if !hasOverride || hasPreemption || recovering {
			return "OVERRIDDEN must hold only an override"
		}
		if st.overrideRemaining < 1 {
			return "OVERRIDDEN with no time remaining"
		}
	case StatePreempted:
		if !hasPreemption || hasOverride || recovering {
			return "PREEMPTED must hold only a preemption"
		}
		if st.preemptionRemaining < 1 {
			return "PREEMPTED with no time remaining"
		}
		if !st.preemption.covers(s.id) {
			return "PREEMPTED by a request whose route excludes this junction"
		}
	case StateRecovering:
		if hasOverride || hasPreemption || !recovering {
			return "RECOVERING must hold no request and positive recovery time"
		}
	default:
		return fmt.Sprintf("unknown control state %q", st.control)
	}
	return ""
}
