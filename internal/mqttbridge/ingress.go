package mqttbridge

import (
	"encoding/json"
	"fmt"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/mqtt"
)

// sourceMQTT tags commands that arrived over the broker.
const sourceMQTT = "mqtt"

// cancelPayload is the optional body of a cancel command.
type cancelPayload struct {
	RequestID string `json:"request_id"`
	Source    string `json:"source"`
}

func (b *Bridge) subscribe() error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.AllOverrideCommands(), b.handleOverride},
		{b.topics.AllOverrideCancels(), b.handleOverrideCancel},
		{b.topics.PreemptionCommand(), b.handlePreemption},
		{b.topics.AllPreemptionCancels(), b.handlePreemptionCancel},
	}
	for _, s := range subs {
		if err := b.client.Subscribe(s.topic, eventQoS, s.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
	}
	b.logger.Info("mqtt command ingress ready", "subscriptions", len(subs))
	return nil
}

// handleOverride serves nexusgrid/command/override/{junction_id}. The
// junction in the topic wins over any junction_id in the body.
func (b *Bridge) handleOverride(topic string, payload []byte) error {
	var cmd command.OverrideCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return b.rejectMalformed(topic, payload, err)
	}
	cmd.JunctionID = mqtt.Segment(topic, 3)
	if cmd.Source == "" {
		cmd.Source = sourceMQTT
	}

	o, err := b.commands.Override(cmd)
	res := command.NewResult(cmd.RequestID, err)
	if o != nil {
		res.OverrideID = o.ID
	}
	b.respond(res)
	return nil
}

// handleOverrideCancel serves nexusgrid/command/override/{junction_id}/cancel.
func (b *Bridge) handleOverrideCancel(topic string, payload []byte) error {
	body, err := parseCancel(payload)
	if err != nil {
		return b.rejectMalformed(topic, payload, err)
	}
	err = b.commands.CancelOverride(body.RequestID, mqtt.Segment(topic, 3), body.Source)
	b.respond(command.NewResult(body.RequestID, err))
	return nil
}

// handlePreemption serves nexusgrid/command/preemption.
func (b *Bridge) handlePreemption(topic string, payload []byte) error {
	var cmd command.PreemptionCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return b.rejectMalformed(topic, payload, err)
	}
	if cmd.Source == "" {
		cmd.Source = sourceMQTT
	}

	p, err := b.commands.Preempt(cmd)
	res := command.NewResult(cmd.RequestID, err)
	if p != nil {
		res.PreemptionID = p.ID
	}
	b.respond(res)
	return nil
}

// handlePreemptionCancel serves nexusgrid/command/preemption/{id}/cancel.
func (b *Bridge) handlePreemptionCancel(topic string, payload []byte) error {
	body, err := parseCancel(payload)
	if err != nil {
		return b.rejectMalformed(topic, payload, err)
	}
	err = b.commands.CancelPreemption(body.RequestID, mqtt.Segment(topic, 3), body.Source)
	res := command.NewResult(body.RequestID, err)
	if err == nil {
		res.PreemptionID = mqtt.Segment(topic, 3)
	}
	b.respond(res)
	return nil
}

func parseCancel(payload []byte) (cancelPayload, error) {
	body := cancelPayload{Source: sourceMQTT}
	if len(payload) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return body, err
	}
	if body.Source == "" {
		body.Source = sourceMQTT
	}
	return body, nil
}

// rejectMalformed answers an unparseable command. The request id is
// recovered on a best-effort basis so the sender still gets a response.
func (b *Bridge) rejectMalformed(topic string, payload []byte, cause error) error {
	var partial struct {
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(payload, &partial) //nolint:errcheck // best effort

	err := fmt.Errorf("%w: malformed command on %s: %w", arbitration.ErrInvalidRequest, topic, cause)
	b.respond(command.NewResult(partial.RequestID, err))
	return err
}

// respond publishes res on the response topic. Commands without a
// request_id get no response; the dispatcher has already logged them.
func (b *Bridge) respond(res command.Result) {
	if res.RequestID == "" {
		if !res.OK {
			b.logger.Warn("mqtt command rejected without request_id", "error_code", res.Code, "message", res.Message)
		}
		return
	}
	b.enqueueJSON(b.topics.Response(res.RequestID), res, eventQoS, false)
}
