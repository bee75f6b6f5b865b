package junction

import "errors"

// Domain errors for the junction catalogue.
var (
	// ErrInvalidCatalogue is returned when a catalogue fails validation.
	ErrInvalidCatalogue = errors.New("junction: invalid catalogue")

	// ErrJunctionNotFound is returned when a junction ID is not catalogued.
	ErrJunctionNotFound = errors.New("junction: not found")

	// ErrCorridorNotFound is returned when a corridor ID is not catalogued.
	ErrCorridorNotFound = errors.New("junction: corridor not found")

	// ErrVehicleTypeNotFound is returned when a vehicle type is not catalogued.
	ErrVehicleTypeNotFound = errors.New("junction: vehicle type not found")

	// ErrEmptyStore is returned by Load when nothing has been saved yet.
	ErrEmptyStore = errors.New("junction: no catalogue stored")
)
