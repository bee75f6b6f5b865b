package arbitration

import (
	"fmt"
	"sort"
)

// PhaseTable maps each junction to its cyclic phase sequence.
// It is immutable once built and safe for concurrent reads.
type PhaseTable struct {
	sequences map[string][]Phase
	ids       []string
}

// NewPhaseTable validates and copies sequences.
//
// Every junction needs at least one phase, and every phase needs an ID and
// a positive duration.
func NewPhaseTable(sequences map[string][]Phase) (*PhaseTable, error) {
	t := &PhaseTable{
		sequences: make(map[string][]Phase, len(sequences)),
		ids:       make([]string, 0, len(sequences)),
	}
	for id, phases := range sequences {
		if id == "" {
			return nil, fmt.Errorf("%w: empty junction id", ErrInvalidRequest)
		}
		if len(phases) == 0 {
			return nil, fmt.Errorf("%w: junction %s has no phases", ErrInvalidRequest, id)
		}
		for i, p := range phases {
			if p.ID == "" {
				return nil, fmt.Errorf("%w: junction %s phase %d has no id", ErrInvalidRequest, id, i)
			}
			if p.DurationSeconds <= 0 {
				return nil, fmt.Errorf("%w: junction %s phase %s duration must be positive", ErrInvalidRequest, id, p.ID)
			}
		}
		t.sequences[id] = append([]Phase(nil), phases...)
		t.ids = append(t.ids, id)
	}
	sort.Strings(t.ids)
	return t, nil
}

// PhasesFor returns a copy of the junction's phase sequence.
func (t *PhaseTable) PhasesFor(junctionID string) ([]Phase, error) {
	phases, ok := t.sequences[junctionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJunction, junctionID)
	}
	return append([]Phase(nil), phases...), nil
}

// IDs returns all junction IDs in sorted order.
func (t *PhaseTable) IDs() []string {
	return append([]string(nil), t.ids...)
}

// Len returns the number of junctions.
func (t *PhaseTable) Len() int { return len(t.ids) }

// CycleSeconds is the sum of the junction's phase durations.
func (t *PhaseTable) CycleSeconds(junctionID string) (int, error) {
	phases, ok := t.sequences[junctionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJunction, junctionID)
	}
	total := 0
	for _, p := range phases {
		total += p.DurationSeconds
	}
	return total, nil
}
