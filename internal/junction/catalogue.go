package junction

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// LoadCatalogue reads and validates a YAML catalogue file.
//
// Parameters:
//   - path: Path to the junctions file (e.g. configs/junctions.yaml)
//
// Returns:
//   - *Catalogue: Validated catalogue
//   - error: If the file cannot be read, parsed or validated
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes YAML and validates the result. Unknown keys are
// rejected so typos do not silently drop junctions.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalogue
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing catalogue: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalogue and reports every problem at once.
//
// Rules:
//   - at least one junction; IDs unique and non-empty
//   - each junction has at least one phase, each with an ID and a
//     positive duration, phase IDs unique within the junction
//   - corridors reference known junctions, without repeats, and carry a
//     valid default class
//   - vehicle types have unique IDs and a valid class
func (c *Catalogue) Validate() error {
	var errs []string

	if len(c.Junctions) == 0 {
		errs = append(errs, "at least one junction is required")
	}
	junctions := make(map[string]bool, len(c.Junctions))
	for i, j := range c.Junctions {
		if j.ID == "" {
			errs = append(errs, fmt.Sprintf("junctions[%d]: id is required", i))
			continue
		}
		if junctions[j.ID] {
			errs = append(errs, fmt.Sprintf("junction %s: duplicate id", j.ID))
		}
		junctions[j.ID] = true
		errs = append(errs, validatePhases(j)...)
	}

	corridors := make(map[string]bool, len(c.Corridors))
	for i, cor := range c.Corridors {
		if cor.ID == "" {
			errs = append(errs, fmt.Sprintf("corridors[%d]: id is required", i))
			continue
		}
		if corridors[cor.ID] {
			errs = append(errs, fmt.Sprintf("corridor %s: duplicate id", cor.ID))
		}
		corridors[cor.ID] = true
		if len(cor.JunctionIDs) == 0 {
			errs = append(errs, fmt.Sprintf("corridor %s: no junctions", cor.ID))
		}
		seen := make(map[string]bool, len(cor.JunctionIDs))
		for _, jid := range cor.JunctionIDs {
			if !junctions[jid] {
				errs = append(errs, fmt.Sprintf("corridor %s: unknown junction %q", cor.ID, jid))
			}
			if seen[jid] {
				errs = append(errs, fmt.Sprintf("corridor %s: junction %s listed twice", cor.ID, jid))
			}
			seen[jid] = true
		}
		if !cor.DefaultClass.Valid() {
			errs = append(errs, fmt.Sprintf("corridor %s: invalid default_class %q", cor.ID, cor.DefaultClass))
		}
	}

	types := make(map[string]bool, len(c.VehicleTypes))
	for i, vt := range c.VehicleTypes {
		if vt.ID == "" {
			errs = append(errs, fmt.Sprintf("vehicle_types[%d]: id is required", i))
			continue
		}
		if types[vt.ID] {
			errs = append(errs, fmt.Sprintf("vehicle type %s: duplicate id", vt.ID))
		}
		types[vt.ID] = true
		if !vt.Class.Valid() {
			errs = append(errs, fmt.Sprintf("vehicle type %s: invalid class %q", vt.ID, vt.Class))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalogue, strings.Join(errs, "; "))
	}
	return nil
}

func validatePhases(j Junction) []string {
	if len(j.Phases) == 0 {
		return []string{fmt.Sprintf("junction %s: at least one phase is required", j.ID)}
	}
	var errs []string
	seen := make(map[string]bool, len(j.Phases))
	for i, p := range j.Phases {
		switch {
		case p.ID == "":
			errs = append(errs, fmt.Sprintf("junction %s phases[%d]: id is required", j.ID, i))
		case seen[p.ID]:
			errs = append(errs, fmt.Sprintf("junction %s phase %s: duplicate id", j.ID, p.ID))
		}
		seen[p.ID] = true
		if p.DurationSeconds <= 0 {
			errs = append(errs, fmt.Sprintf("junction %s phase %s: duration_seconds must be positive", j.ID, p.ID))
		}
	}
	return errs
}

// IsNotFound reports whether err is any catalogue lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJunctionNotFound) ||
		errors.Is(err, ErrCorridorNotFound) ||
		errors.Is(err, ErrVehicleTypeNotFound)
}

// ringPhases is the five-phase ring from the operations dashboard.
func ringPhases() []Phase {
	return []Phase{
		{ID: "P1", Name: "Outer Ring Road", DurationSeconds: 45},
		{ID: "P2", Name: "MG Road", DurationSeconds: 20},
		{ID: "P3", Name: "Bhagwaan Mahavir Maarg", DurationSeconds: 40},
		{ID: "P4", Name: "Sardar Patel Marg", DurationSeconds: 15},
		{ID: "P5", Name: "Pedestrian All-Way", DurationSeconds: 25},
	}
}

// DefaultCatalogue returns the built-in five-junction network used when no
// catalogue file or stored catalogue exists.
func DefaultCatalogue() *Catalogue {
	names := []struct{ id, name string }{
		{"J001", "Main St & 1st Ave"},
		{"J002", "Broadway & 2nd St"},
		{"J003", "Park Ave & 3rd St"},
		{"J004", "4th St & Oak Rd"},
		{"J005", "Elm St & 5th Ave"},
	}
	c := &Catalogue{}
	for _, n := range names {
		c.Junctions = append(c.Junctions, Junction{ID: n.id, Name: n.name, Phases: ringPhases()})
	}
	c.Corridors = []Corridor{
		{ID: "route-1", Name: "Main St Northbound", JunctionIDs: []string{"J001", "J002", "J005"}, DefaultClass: arbitration.ClassHigh},
		{ID: "route-2", Name: "Broadway Eastbound", JunctionIDs: []string{"J002", "J003"}, DefaultClass: arbitration.ClassMedium},
		{ID: "route-3", Name: "1st Ave Corridor", JunctionIDs: []string{"J001", "J004"}, DefaultClass: arbitration.ClassHigh},
		{ID: "route-4", Name: "Emergency Bypass", JunctionIDs: []string{"J003", "J004", "J005"}, DefaultClass: arbitration.ClassCritical},
	}
	c.VehicleTypes = []VehicleType{
		{ID: "ambulance", Name: "Ambulance", Class: arbitration.ClassCritical},
		{ID: "fire", Name: "Fire Truck", Class: arbitration.ClassCritical},
		{ID: "police", Name: "Police", Class: arbitration.ClassHigh},
		{ID: "transit", Name: "Public Transit", Class: arbitration.ClassMedium},
	}
	return c
}
