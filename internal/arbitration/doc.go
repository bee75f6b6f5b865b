// Package arbitration decides which control source governs each signal
// junction at every second, and hands control back safely when a higher
// priority source finishes.
//
// Three sources compete for a junction:
//
//   - the automatic cycle, stepping through the junction's phases
//   - an operator override (HOLD, SKIP, FORCE_ALL_RED, EXTEND_GREEN)
//   - an emergency preemption spanning a whole route
//
// Exactly one governs a junction at any instant. The per-junction state
// machine is:
//
//	AUTOMATIC  --ActivateOverride-----------> OVERRIDDEN
//	AUTOMATIC  --ActivatePreemption---------> PREEMPTED
//	OVERRIDDEN --CancelOverride / expiry----> AUTOMATIC
//	OVERRIDDEN --ActivatePreemption---------> PREEMPTED   (override discarded)
//	PREEMPTED  --countdown reaches 0--------> RECOVERING
//	PREEMPTED  --CancelPreemption-----------> AUTOMATIC   (no recovery)
//	RECOVERING --recovery elapsed-----------> AUTOMATIC
//
// The automatic clock freezes outside AUTOMATIC and resumes from the same
// phase and remaining time.
//
// # Priority
//
// Preemptions rank CRITICAL > HIGH > MEDIUM > LOW. A request is denied when
// any route junction is already preempted by an equal or higher class; the
// first request wins ties. Activation is all-or-nothing across the route.
//
// # Time
//
// The engine owns no clock. A Driver (or a test) calls Engine.Tick once per
// second; every countdown moves by exactly one second per tick. The
// timestamp passed to Tick only stamps events and snapshots.
//
// # Concurrency
//
// Each junction has its own lock, so ticks for different junctions run in
// parallel. Route-wide commands lock every route junction in sorted ID
// order before changing any of them.
//
// # Debug builds
//
// Building with -tags arbitrationdebug checks the state invariants after
// every mutation and panics on a violation.
//
// This package has no transport. HTTP, MQTT and persistence adapters live
// elsewhere and use only the exported API.
package arbitration
