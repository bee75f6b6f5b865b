// Package mqttbridge connects the arbitration engine to the alert
// collaborator over MQTT.
//
// Egress: every engine event is published to nexusgrid/core/event/{type}
// and the affected junction's snapshot is republished, retained, on
// nexusgrid/core/junction/{id}/state. After each tick all snapshots are
// republished.
//
// Ingress: override and preemption commands arrive as JSON on
// nexusgrid/command/...; each carries a request_id and is answered on
// nexusgrid/response/{request_id}.
//
// Publishing happens on the bridge's own goroutine, so neither the engine
// nor the tick driver waits on the broker.
package mqttbridge
