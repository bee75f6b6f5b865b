// Package journal keeps the history of control decisions: every override,
// preemption and recovery event the arbitration engine emits.
//
// The Recorder plugs into the engine as an event sink and writes in the
// background; the SQLiteRepository answers history queries such as the
// override log for a junction or the lifecycle of one preemption.
package journal
