// Package api is the HTTP and WebSocket surface of Nexus Grid for UI
// collaborators (operator dashboards, dispatcher consoles).
//
// REST routes live under /api/v1: junction snapshots, overrides,
// preemptions, corridors and the control event history. Engine events and
// per-tick snapshots are pushed live over /api/v1/ws on the
// "control.event" and "junction.state" channels.
//
// The server follows the same lifecycle as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use.
package api
