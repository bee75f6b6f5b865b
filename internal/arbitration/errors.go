package arbitration

import "errors"

// Domain errors for the arbitration engine.
//
// Every command failure wraps exactly one of these, so callers can branch
// with errors.Is:
//
//	if errors.Is(err, arbitration.ErrBusy) {
//	    // junction is under emergency control or already overridden
//	}
var (
	// ErrUnknownJunction is returned when a junction ID is not in the phase table.
	ErrUnknownJunction = errors.New("arbitration: unknown junction")

	// ErrBusy is returned when an override would violate mutual exclusion:
	// the junction is preempted, recovering, or already overridden.
	ErrBusy = errors.New("arbitration: junction busy")

	// ErrPreemptionDenied is returned when a route junction already holds a
	// preemption of equal or higher class. No junction is changed.
	ErrPreemptionDenied = errors.New("arbitration: preemption denied")

	// ErrNotFound is returned when cancelling an override or preemption that
	// is not active.
	ErrNotFound = errors.New("arbitration: not found")

	// ErrInvalidRequest is returned for malformed commands: unknown action or
	// class, negative duration, empty or duplicate route.
	ErrInvalidRequest = errors.New("arbitration: invalid request")
)
