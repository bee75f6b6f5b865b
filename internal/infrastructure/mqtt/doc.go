// Package mqtt connects Nexus Grid to the MQTT broker shared with the
// alert collaborator.
//
// The broker carries three kinds of traffic:
//   - control events published by the engine (not retained)
//   - retained per-junction state snapshots
//   - override and preemption commands from the alert collaborator, with a
//     response per request_id
//
// The client reconnects automatically and restores its subscriptions. A
// retained Last Will on nexusgrid/system/status marks the core offline if
// it disappears without a clean shutdown.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllOverrideCommands(), 1, handler)
package mqtt
