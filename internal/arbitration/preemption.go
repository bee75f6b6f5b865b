package arbitration

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActivatePreemption gives an emergency vehicle control of every junction
// on its route at once.
//
// Activation is all-or-nothing. If any route junction is PREEMPTED by a
// request of equal or higher class, nothing changes and ErrPreemptionDenied
// is returned. Otherwise, on every route junction:
//   - an active override is discarded without expiring
//   - a lower-class preemption is displaced (its other junctions carry on)
//   - a recovery in progress is abandoned
//
// and the junction becomes PREEMPTED with a countdown of
// clearance × route length seconds.
//
// Returns:
//   - *PreemptionRequest: The accepted, shared request
//   - error: ErrInvalidRequest, ErrUnknownJunction or ErrPreemptionDenied
func (e *Engine) ActivatePreemption(cmd PreemptionCommand) (*PreemptionRequest, error) {
	if err := validateRoute(cmd.RouteJunctionIDs); err != nil {
		return nil, err
	}
	if !cmd.VehicleClass.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle class %q", ErrInvalidRequest, cmd.VehicleClass)
	}
	clearance := cmd.ClearanceSecondsPerJunction
	if clearance < 0 {
		return nil, fmt.Errorf("%w: clearance must be positive", ErrInvalidRequest)
	}
	if clearance == 0 {
		clearance = e.cfg.DefaultClearanceSeconds
	}
	if clearance > e.cfg.MaxPreemptionSeconds/len(cmd.RouteJunctionIDs) {
		return nil, fmt.Errorf("%w: %ds clearance over %d junctions exceeds the %ds limit",
			ErrInvalidRequest, clearance, len(cmd.RouteJunctionIDs), e.cfg.MaxPreemptionSeconds)
	}

	slots := make([]*junctionSlot, 0, len(cmd.RouteJunctionIDs))
	for _, id := range cmd.RouteJunctionIDs {
		s, err := e.slot(id)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].id < slots[j].id })

	now := e.clock()
	req := &PreemptionRequest{
		ID:                          uuid.New().String(),
		RouteJunctionIDs:            append([]string(nil), cmd.RouteJunctionIDs...),
		VehicleClass:                cmd.VehicleClass,
		ClearanceSecondsPerJunction: clearance,
		IssuedAt:                    now,
	}

	for _, s := range slots {
		s.mu.Lock()
	}
	unlock := func() {
		for i := len(slots) - 1; i >= 0; i-- {
			slots[i].mu.Unlock()
		}
	}

	for _, s := range slots {
		held := s.state.preemption
		if s.state.control == StatePreempted && held != nil && !req.VehicleClass.Outranks(held.VehicleClass) {
			unlock()
			e.logger.Info("preemption denied",
				"junction_id", s.id,
				"vehicle_class", string(req.VehicleClass),
				"held_by", held.ID,
				"held_class", string(held.VehicleClass),
			)
			return nil, fmt.Errorf("%w: junction %s held by %s preemption %s",
				ErrPreemptionDenied, s.id, held.VehicleClass, held.ID)
		}
	}

	var events []Event
	var released []string
	for _, s := range slots {
		switch s.state.control {
		case StateOverridden:
			events = append(events, overrideEvent(EventOverrideDiscarded, s.state.override, StatePreempted, now))
		case StatePreempted:
			prev := s.state.preemption
			events = append(events, preemptionEvent(EventPreemptionDisplaced, s.id, prev, StatePreempted, now))
			released = append(released, prev.ID)
		case StateRecovering:
			if s.state.recoveryFrom != nil {
				released = append(released, s.state.recoveryFrom.ID)
			}
		}
		s.returnToAutomatic()
		s.state.control = StatePreempted
		s.state.preemption = req
		s.state.preemptionRemaining = req.DurationSeconds()
		s.updatedAt = now
		s.assertInvariants()
		events = append(events, preemptionEvent(EventPreemptionActivated, s.id, req, StatePreempted, now))
	}

	e.prMu.Lock()
	e.preemptions[req.ID] = &preemptionEntry{req: req, holders: len(slots)}
	e.prMu.Unlock()
	for _, id := range released {
		e.releasePreemption(id)
	}
	e.sequence(events)
	unlock()

	e.logger.Info("preemption activated",
		"preemption_id", req.ID,
		"vehicle_class", string(req.VehicleClass),
		"route", req.RouteJunctionIDs,
		"duration_seconds", req.DurationSeconds(),
	)
	e.emit(events)
	return req, nil
}

// CancelPreemption aborts a preemption. Every junction still PREEMPTED by
// it returns directly to AUTOMATIC with no recovery. Junctions that have
// already moved on to recovery are left alone.
//
// Returns ErrNotFound if no junction is PREEMPTED by preemptionID.
func (e *Engine) CancelPreemption(preemptionID string) error {
	e.prMu.Lock()
	entry, ok := e.preemptions[preemptionID]
	var route []string
	if ok {
		route = entry.req.RouteJunctionIDs
	}
	e.prMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: preemption %s", ErrNotFound, preemptionID)
	}

	slots := make([]*junctionSlot, 0, len(route))
	for _, id := range route {
		slots = append(slots, e.slots[id])
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].id < slots[j].id })

	now := e.clock()
	for _, s := range slots {
		s.mu.Lock()
	}
	var events []Event
	for _, s := range slots {
		req := s.state.preemption
		if s.state.control != StatePreempted || req == nil || req.ID != preemptionID {
			continue
		}
		s.returnToAutomatic()
		s.updatedAt = now
		s.assertInvariants()
		events = append(events, preemptionEvent(EventPreemptionCancelled, s.id, req, StateAutomatic, now))
		e.releasePreemption(preemptionID)
	}
	e.sequence(events)
	for i := len(slots) - 1; i >= 0; i-- {
		slots[i].mu.Unlock()
	}

	if len(events) == 0 {
		return fmt.Errorf("%w: preemption %s holds no junction", ErrNotFound, preemptionID)
	}
	e.logger.Info("preemption cancelled", "preemption_id", preemptionID, "junctions", len(events))
	e.emit(events)
	return nil
}

// ActivePreemption is a request together with the junctions it still
// holds. Only a Cancellable request can be passed to CancelPreemption.
type ActivePreemption struct {
	PreemptionRequest
	PreemptedJunctionIDs  []string `json:"preempted_junction_ids"`
	RecoveringJunctionIDs []string `json:"recovering_junction_ids"`
	Cancellable           bool     `json:"cancellable"`
}

// ActivePreemptions returns every request still PREEMPTING or RECOVERING
// at least one junction, oldest first. Junction lists are in ID order.
func (e *Engine) ActivePreemptions() []ActivePreemption {
	e.prMu.Lock()
	byID := make(map[string]*ActivePreemption, len(e.preemptions))
	for id, entry := range e.preemptions {
		req := *entry.req
		req.RouteJunctionIDs = append([]string(nil), entry.req.RouteJunctionIDs...)
		byID[id] = &ActivePreemption{PreemptionRequest: req}
	}
	e.prMu.Unlock()

	for _, s := range e.order {
		s.mu.Lock()
		control, held, recovering := s.state.control, s.state.preemption, s.state.recoveryFrom
		s.mu.Unlock()

		switch {
		case control == StatePreempted && held != nil:
			if a, ok := byID[held.ID]; ok {
				a.PreemptedJunctionIDs = append(a.PreemptedJunctionIDs, s.id)
				a.Cancellable = true
			}
		case control == StateRecovering && recovering != nil:
			if a, ok := byID[recovering.ID]; ok {
				a.RecoveringJunctionIDs = append(a.RecoveringJunctionIDs, s.id)
			}
		}
	}

	out := make([]ActivePreemption, 0, len(byID))
	for _, a := range byID {
		if len(a.PreemptedJunctionIDs)+len(a.RecoveringJunctionIDs) == 0 {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// releasePreemption drops one junction's hold on a request and forgets
// the request when no junction holds it. Callers may hold junction locks.
func (e *Engine) releasePreemption(id string) {
	e.prMu.Lock()
	defer e.prMu.Unlock()
	entry, ok := e.preemptions[id]
	if !ok {
		return
	}
	entry.holders--
	if entry.holders <= 0 {
		delete(e.preemptions, id)
	}
}

// advancePreemption counts the junction's copy of the preemption down one
// second. At zero the junction starts recovering.
func (s *junctionSlot) advancePreemption(recoverySeconds int, now time.Time) []Event {
	s.state.preemptionRemaining--
	if s.state.preemptionRemaining > 0 {
		return nil
	}
	req := s.state.preemption
	s.state.control = StateRecovering
	s.state.preemption = nil
	s.state.preemptionRemaining = 0
	s.state.recoveryFrom = req
	s.state.recoveryRemaining = recoverySeconds
	return []Event{
		preemptionEvent(EventPreemptionCompleted, s.id, req, StateRecovering, now),
		preemptionEvent(EventRecoveryStarted, s.id, req, StateRecovering, now),
	}
}

// advanceRecovery counts recovery down one second. At zero the junction
// returns to AUTOMATIC and the finished request is returned so the caller
// can release it.
func (s *junctionSlot) advanceRecovery(now time.Time) ([]Event, *PreemptionRequest) {
	s.state.recoveryRemaining--
	if s.state.recoveryRemaining > 0 {
		return nil, nil
	}
	req := s.state.recoveryFrom
	s.returnToAutomatic()
	ev := newEvent(EventRecoveryCompleted, s.id, StateAutomatic, now)
	if req != nil {
		ev = preemptionEvent(EventRecoveryCompleted, s.id, req, StateAutomatic, now)
	}
	return []Event{ev}, req
}

func validateRoute(route []string) error {
	if len(route) == 0 {
		return fmt.Errorf("%w: route is empty", ErrInvalidRequest)
	}
	seen := make(map[string]struct{}, len(route))
	for _, id := range route {
		if id == "" {
			return fmt.Errorf("%w: route has an empty junction id", ErrInvalidRequest)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: junction %s appears twice in route", ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
