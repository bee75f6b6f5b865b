package command

import (
	"errors"
	"fmt"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/junction"
)

// Error codes reported to collaborators in Result.Code.
const (
	CodeUnknownJunction  = "unknown_junction"
	CodeBusy             = "busy"
	CodePreemptionDenied = "preemption_denied"
	CodeNotFound         = "not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeInternal         = "internal_error"
)

// Engine is the subset of the arbitration engine the dispatcher drives.
type Engine interface {
	ActivateOverride(junctionID string, action arbitration.OverrideAction, durationSeconds int) (*arbitration.OverrideRequest, error)
	CancelOverride(junctionID string) error
	ActivatePreemption(cmd arbitration.PreemptionCommand) (*arbitration.PreemptionRequest, error)
	CancelPreemption(preemptionID string) error
}

// Catalogue resolves corridor and vehicle type names.
type Catalogue interface {
	Corridor(id string) (junction.Corridor, error)
	VehicleType(id string) (junction.VehicleType, error)
}

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// OverrideCommand is an operator override as received from a collaborator.
// Action accepts any spelling ParseOverrideAction does.
type OverrideCommand struct {
	RequestID       string `json:"request_id,omitempty"`
	JunctionID      string `json:"junction_id"`
	Action          string `json:"action"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Source          string `json:"source,omitempty"`
}

// PreemptionCommand is a preemption as received from a collaborator.
//
// The route is either RouteJunctionIDs or a CorridorID, never both. The
// class is VehicleClass, else the VehicleType's class, else the corridor's
// default class.
type PreemptionCommand struct {
	RequestID                   string   `json:"request_id,omitempty"`
	RouteJunctionIDs            []string `json:"route_junction_ids,omitempty"`
	CorridorID                  string   `json:"corridor_id,omitempty"`
	VehicleClass                string   `json:"vehicle_class,omitempty"`
	VehicleType                 string   `json:"vehicle_type,omitempty"`
	ClearanceSecondsPerJunction int      `json:"clearance_seconds_per_junction,omitempty"`
	Source                      string   `json:"source,omitempty"`
}

// Result is the synchronous answer to a command. Rejections always carry
// a Code and Message.
type Result struct {
	RequestID    string `json:"request_id,omitempty"`
	OK           bool   `json:"ok"`
	Code         string `json:"error_code,omitempty"`
	Message      string `json:"message,omitempty"`
	PreemptionID string `json:"preemption_id,omitempty"`
	OverrideID   string `json:"override_id,omitempty"`
}

// NewResult builds the Result for a command outcome.
func NewResult(requestID string, err error) Result {
	if err == nil {
		return Result{RequestID: requestID, OK: true}
	}
	return Result{RequestID: requestID, Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode maps an error to its collaborator-facing code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, arbitration.ErrUnknownJunction):
		return CodeUnknownJunction
	case errors.Is(err, arbitration.ErrBusy):
		return CodeBusy
	case errors.Is(err, arbitration.ErrPreemptionDenied):
		return CodePreemptionDenied
	case errors.Is(err, arbitration.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, arbitration.ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// Dispatcher turns collaborator commands into engine calls, resolving
// names from the catalogue and applying defaults.
//
// Thread Safety: safe for concurrent use; all state lives in the engine.
type Dispatcher struct {
	engine    Engine
	catalogue Catalogue
	logger    Logger
}

// NewDispatcher creates a dispatcher. catalogue may be nil, in which case
// corridor and vehicle type names are rejected.
func NewDispatcher(engine Engine, catalogue Catalogue) *Dispatcher {
	return &Dispatcher{engine: engine, catalogue: catalogue, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Override activates an operator override.
func (d *Dispatcher) Override(cmd OverrideCommand) (*arbitration.OverrideRequest, error) {
	if cmd.JunctionID == "" {
		return nil, fmt.Errorf("%w: junction_id is required", arbitration.ErrInvalidRequest)
	}
	action, err := arbitration.ParseOverrideAction(cmd.Action)
	if err != nil {
		return nil, err
	}
	req, err := d.engine.ActivateOverride(cmd.JunctionID, action, cmd.DurationSeconds)
	d.log("override", cmd.RequestID, cmd.Source, err, "junction_id", cmd.JunctionID, "action", string(action))
	return req, err
}

// CancelOverride cancels the junction's override.
func (d *Dispatcher) CancelOverride(requestID, junctionID, source string) error {
	err := d.engine.CancelOverride(junctionID)
	d.log("cancel override", requestID, source, err, "junction_id", junctionID)
	return err
}

// Preempt resolves the route and class, then activates the preemption.
func (d *Dispatcher) Preempt(cmd PreemptionCommand) (*arbitration.PreemptionRequest, error) {
	resolved, err := d.resolve(cmd)
	if err != nil {
		d.log("preemption", cmd.RequestID, cmd.Source, err)
		return nil, err
	}
	req, err := d.engine.ActivatePreemption(resolved)
	d.log("preemption", cmd.RequestID, cmd.Source, err,
		"route", resolved.RouteJunctionIDs,
		"vehicle_class", string(resolved.VehicleClass),
	)
	return req, err
}

// CancelPreemption aborts a preemption.
func (d *Dispatcher) CancelPreemption(requestID, preemptionID, source string) error {
	err := d.engine.CancelPreemption(preemptionID)
	d.log("cancel preemption", requestID, source, err, "preemption_id", preemptionID)
	return err
}

func (d *Dispatcher) resolve(cmd PreemptionCommand) (arbitration.PreemptionCommand, error) {
	out := arbitration.PreemptionCommand{ClearanceSecondsPerJunction: cmd.ClearanceSecondsPerJunction}

	var corridor *junction.Corridor
	switch {
	case cmd.CorridorID != "" && len(cmd.RouteJunctionIDs) > 0:
		return out, fmt.Errorf("%w: give route_junction_ids or corridor_id, not both", arbitration.ErrInvalidRequest)
	case cmd.CorridorID != "":
		c, err := d.lookupCorridor(cmd.CorridorID)
		if err != nil {
			return out, err
		}
		corridor = &c
		out.RouteJunctionIDs = c.JunctionIDs
	default:
		out.RouteJunctionIDs = cmd.RouteJunctionIDs
	}

	switch {
	case cmd.VehicleClass != "" && cmd.VehicleType != "":
		return out, fmt.Errorf("%w: give vehicle_class or vehicle_type, not both", arbitration.ErrInvalidRequest)
	case cmd.VehicleClass != "":
		class, err := arbitration.ParseVehicleClass(cmd.VehicleClass)
		if err != nil {
			return out, err
		}
		out.VehicleClass = class
	case cmd.VehicleType != "":
		vt, err := d.lookupVehicleType(cmd.VehicleType)
		if err != nil {
			return out, err
		}
		out.VehicleClass = vt.Class
	case corridor != nil:
		out.VehicleClass = corridor.DefaultClass
	default:
		return out, fmt.Errorf("%w: vehicle_class or vehicle_type is required", arbitration.ErrInvalidRequest)
	}
	return out, nil
}

func (d *Dispatcher) lookupCorridor(id string) (junction.Corridor, error) {
	if d.catalogue == nil {
		return junction.Corridor{}, fmt.Errorf("%w: corridors are not configured", arbitration.ErrInvalidRequest)
	}
	c, err := d.catalogue.Corridor(id)
	if err != nil {
		return junction.Corridor{}, fmt.Errorf("%w: %w", arbitration.ErrInvalidRequest, err)
	}
	return c, nil
}

func (d *Dispatcher) lookupVehicleType(id string) (junction.VehicleType, error) {
	if d.catalogue == nil {
		return junction.VehicleType{}, fmt.Errorf("%w: vehicle types are not configured", arbitration.ErrInvalidRequest)
	}
	vt, err := d.catalogue.VehicleType(id)
	if err != nil {
		return junction.VehicleType{}, fmt.Errorf("%w: %w", arbitration.ErrInvalidRequest, err)
	}
	return vt, nil
}

// log records every command outcome; rejections are logged at warn so
// none go unreported.
func (d *Dispatcher) log(op, requestID, source string, err error, args ...any) {
	args = append(args, "request_id", requestID, "source", source)
	if err != nil {
		args = append(args, "error_code", ErrorCode(err), "error", err)
		d.logger.Warn(op+" rejected", args...)
		return
	}
	d.logger.Info(op+" accepted", args...)
}
