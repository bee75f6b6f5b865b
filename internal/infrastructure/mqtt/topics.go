package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes. Everything Nexus Grid publishes or consumes lives under
// "nexusgrid/".
const (
	TopicPrefix        = "nexusgrid"
	TopicPrefixCore    = "nexusgrid/core"
	TopicPrefixCommand = "nexusgrid/command"
	TopicPrefixSystem  = "nexusgrid/system"
)

// Topics builds Nexus Grid topic names.
//
//	topics := mqtt.Topics{}
//	topics.JunctionState("J001") // nexusgrid/core/junction/J001/state
type Topics struct{}

// ─── Core (egress) ──────────────────────────────────────────────────

// CoreEvent is where engine events of one type are published.
//
// Example: nexusgrid/core/event/preemption_activated
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// JunctionState carries the retained snapshot of one junction.
//
// Example: nexusgrid/core/junction/J001/state
func (Topics) JunctionState(junctionID string) string {
	return fmt.Sprintf("%s/junction/%s/state", TopicPrefixCore, junctionID)
}

// Response carries the outcome of one command.
//
// Example: nexusgrid/response/req-42
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefix, requestID)
}

// ─── Commands (ingress) ─────────────────────────────────────────────

// OverrideCommand requests a manual override on a junction.
//
// Example: nexusgrid/command/override/J001
func (Topics) OverrideCommand(junctionID string) string {
	return fmt.Sprintf("%s/override/%s", TopicPrefixCommand, junctionID)
}

// OverrideCancel cancels the override on a junction.
//
// Example: nexusgrid/command/override/J001/cancel
func (Topics) OverrideCancel(junctionID string) string {
	return fmt.Sprintf("%s/override/%s/cancel", TopicPrefixCommand, junctionID)
}

// PreemptionCommand requests a new emergency preemption.
//
// Example: nexusgrid/command/preemption
func (Topics) PreemptionCommand() string {
	return TopicPrefixCommand + "/preemption"
}

// PreemptionCancel cancels a preemption by id.
//
// Example: nexusgrid/command/preemption/3f2a.../cancel
func (Topics) PreemptionCancel(preemptionID string) string {
	return fmt.Sprintf("%s/preemption/%s/cancel", TopicPrefixCommand, preemptionID)
}

// ─── System ─────────────────────────────────────────────────────────

// SystemStatus carries the retained online/offline status of the core.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ─── Subscription patterns ──────────────────────────────────────────

// AllOverrideCommands matches override requests for any junction.
//
// Pattern: nexusgrid/command/override/+
func (Topics) AllOverrideCommands() string {
	return TopicPrefixCommand + "/override/+"
}

// AllOverrideCancels matches override cancellations for any junction.
//
// Pattern: nexusgrid/command/override/+/cancel
func (Topics) AllOverrideCancels() string {
	return TopicPrefixCommand + "/override/+/cancel"
}

// AllPreemptionCancels matches preemption cancellations.
//
// Pattern: nexusgrid/command/preemption/+/cancel
func (Topics) AllPreemptionCancels() string {
	return TopicPrefixCommand + "/preemption/+/cancel"
}

// AllCoreEvents matches every published engine event.
//
// Pattern: nexusgrid/core/event/+
func (Topics) AllCoreEvents() string {
	return TopicPrefixCore + "/event/+"
}

// AllJunctionStates matches every junction snapshot.
//
// Pattern: nexusgrid/core/junction/+/state
func (Topics) AllJunctionStates() string {
	return TopicPrefixCore + "/junction/+/state"
}

// Segment returns the index-th "/"-separated level of topic, or "" when
// the topic is shorter. Handlers use it to pull ids out of wildcard matches.
func Segment(topic string, index int) string {
	parts := strings.Split(topic, "/")
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}
