package junction

import "github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"

// Phase is one interval of a junction's signal cycle.
type Phase struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	DurationSeconds int    `yaml:"duration_seconds" json:"duration_seconds"`
}

// Junction is a signalised intersection with a fixed cyclic phase sequence.
type Junction struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Phases []Phase `yaml:"phases" json:"phases"`
}

// CycleSeconds is the length of one full cycle.
func (j Junction) CycleSeconds() int {
	total := 0
	for _, p := range j.Phases {
		total += p.DurationSeconds
	}
	return total
}

// Corridor is a named emergency route through several junctions.
// DefaultClass applies when a preemption names the corridor but no class.
type Corridor struct {
	ID           string                   `yaml:"id" json:"id"`
	Name         string                   `yaml:"name" json:"name"`
	JunctionIDs  []string                 `yaml:"junctions" json:"junction_ids"`
	DefaultClass arbitration.VehicleClass `yaml:"default_class" json:"default_class"`
}

// VehicleType maps a kind of emergency vehicle to its preemption class.
type VehicleType struct {
	ID    string                   `yaml:"id" json:"id"`
	Name  string                   `yaml:"name" json:"name"`
	Class arbitration.VehicleClass `yaml:"class" json:"class"`
}

// Catalogue is the full static description of the signal network.
type Catalogue struct {
	Junctions    []Junction    `yaml:"junctions" json:"junctions"`
	Corridors    []Corridor    `yaml:"corridors" json:"corridors"`
	VehicleTypes []VehicleType `yaml:"vehicle_types" json:"vehicle_types"`
}

// phaseTable converts the catalogue into the engine's phase table.
func (c *Catalogue) phaseTable() (*arbitration.PhaseTable, error) {
	seqs := make(map[string][]arbitration.Phase, len(c.Junctions))
	for _, j := range c.Junctions {
		phases := make([]arbitration.Phase, len(j.Phases))
		for i, p := range j.Phases {
			phases[i] = arbitration.Phase{ID: p.ID, Name: p.Name, DurationSeconds: p.DurationSeconds}
		}
		seqs[j.ID] = phases
	}
	return arbitration.NewPhaseTable(seqs)
}
