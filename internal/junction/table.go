package junction

import (
	"fmt"
	"sort"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// Table is an immutable, indexed view of a validated catalogue.
// It is safe for concurrent reads.
type Table struct {
	junctions    map[string]Junction
	corridors    map[string]Corridor
	vehicleTypes map[string]VehicleType
	ids          []string
	corridorIDs  []string
	typeIDs      []string
	phases       *arbitration.PhaseTable
}

// NewTable validates c and indexes it.
func NewTable(c *Catalogue) (*Table, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil catalogue", ErrInvalidCatalogue)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	phases, err := c.phaseTable()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogue, err)
	}

	t := &Table{
		junctions:    make(map[string]Junction, len(c.Junctions)),
		corridors:    make(map[string]Corridor, len(c.Corridors)),
		vehicleTypes: make(map[string]VehicleType, len(c.VehicleTypes)),
		phases:       phases,
	}
	for _, j := range c.Junctions {
		j.Phases = append([]Phase(nil), j.Phases...)
		t.junctions[j.ID] = j
		t.ids = append(t.ids, j.ID)
	}
	for _, cor := range c.Corridors {
		cor.JunctionIDs = append([]string(nil), cor.JunctionIDs...)
		t.corridors[cor.ID] = cor
		t.corridorIDs = append(t.corridorIDs, cor.ID)
	}
	for _, vt := range c.VehicleTypes {
		t.vehicleTypes[vt.ID] = vt
		t.typeIDs = append(t.typeIDs, vt.ID)
	}
	sort.Strings(t.ids)
	sort.Strings(t.corridorIDs)
	sort.Strings(t.typeIDs)
	return t, nil
}

// PhaseTable returns the engine phase table built from the catalogue.
func (t *Table) PhaseTable() *arbitration.PhaseTable { return t.phases }

// PhasesFor returns a junction's phase sequence.
func (t *Table) PhasesFor(junctionID string) ([]arbitration.Phase, error) {
	return t.phases.PhasesFor(junctionID)
}

// IDs returns junction IDs in sorted order.
func (t *Table) IDs() []string { return append([]string(nil), t.ids...) }

// Junction looks up a junction by ID.
func (t *Table) Junction(id string) (Junction, error) {
	j, ok := t.junctions[id]
	if !ok {
		return Junction{}, fmt.Errorf("%w: %s", ErrJunctionNotFound, id)
	}
	j.Phases = append([]Phase(nil), j.Phases...)
	return j, nil
}

// Junctions returns every junction sorted by ID.
func (t *Table) Junctions() []Junction {
	out := make([]Junction, 0, len(t.ids))
	for _, id := range t.ids {
		j, _ := t.Junction(id) //nolint:errcheck // id comes from the index
		out = append(out, j)
	}
	return out
}

// Corridor looks up a corridor by ID.
func (t *Table) Corridor(id string) (Corridor, error) {
	c, ok := t.corridors[id]
	if !ok {
		return Corridor{}, fmt.Errorf("%w: %s", ErrCorridorNotFound, id)
	}
	c.JunctionIDs = append([]string(nil), c.JunctionIDs...)
	return c, nil
}

// Corridors returns every corridor sorted by ID.
func (t *Table) Corridors() []Corridor {
	out := make([]Corridor, 0, len(t.corridorIDs))
	for _, id := range t.corridorIDs {
		c, _ := t.Corridor(id) //nolint:errcheck // id comes from the index
		out = append(out, c)
	}
	return out
}

// VehicleType looks up a vehicle type by ID.
func (t *Table) VehicleType(id string) (VehicleType, error) {
	vt, ok := t.vehicleTypes[id]
	if !ok {
		return VehicleType{}, fmt.Errorf("%w: %s", ErrVehicleTypeNotFound, id)
	}
	return vt, nil
}

// VehicleTypes returns every vehicle type sorted by ID.
func (t *Table) VehicleTypes() []VehicleType {
	out := make([]VehicleType, 0, len(t.typeIDs))
	for _, id := range t.typeIDs {
		out = append(out, t.vehicleTypes[id])
	}
	return out
}

// Catalogue rebuilds a catalogue from the table, sorted by ID.
func (t *Table) Catalogue() *Catalogue {
	return &Catalogue{
		Junctions:    t.Junctions(),
		Corridors:    t.Corridors(),
		VehicleTypes: t.VehicleTypes(),
	}
}
