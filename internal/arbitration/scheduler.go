package arbitration

// advanceAutomatic moves the automatic clock forward one second, cycling
// to the next phase when the current one runs out. It does nothing unless
// the junction is AUTOMATIC.
//
// Returns true when the phase changed.
func (s *junctionSlot) advanceAutomatic() bool {
	if s.state.control != StateAutomatic {
		return false
	}
	s.state.phaseRemaining--
	if s.state.phaseRemaining > 0 {
		return false
	}
	s.state.phaseIndex = (s.state.phaseIndex + 1) % len(s.phases)
	s.state.phaseRemaining = s.phases[s.state.phaseIndex].DurationSeconds
	return true
}

// currentAutomaticPhase is the phase the automatic clock points at.
func (s *junctionSlot) currentAutomaticPhase() Phase {
	return s.phases[s.state.phaseIndex]
}

// nextAutomaticPhase is the phase after the current one, wrapping.
func (s *junctionSlot) nextAutomaticPhase() Phase {
	return s.phases[(s.state.phaseIndex+1)%len(s.phases)]
}

// cycleProgress returns the elapsed share of the full cycle, 0 to 100.
func (s *junctionSlot) cycleProgress() float64 {
	total, elapsed := 0, 0
	for i, p := range s.phases {
		total += p.DurationSeconds
		if i < s.state.phaseIndex {
			elapsed += p.DurationSeconds
		}
	}
	elapsed += s.phases[s.state.phaseIndex].DurationSeconds - s.state.phaseRemaining
	return float64(elapsed) * 100 / float64(total)
}
