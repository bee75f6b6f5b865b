package junction

import (
	"errors"
	"testing"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

func TestNewTable_Lookups(t *testing.T) {
	table, err := NewTable(DefaultCatalogue())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	if ids := table.IDs(); len(ids) != 5 || ids[0] != "J001" || ids[4] != "J005" {
		t.Errorf("IDs() = %v", ids)
	}

	j, err := table.Junction("J003")
	if err != nil || j.Name != "Park Ave & 3rd St" {
		t.Errorf("Junction(J003) = (%+v, %v)", j, err)
	}
	if _, err := table.Junction("J999"); !errors.Is(err, ErrJunctionNotFound) || !IsNotFound(err) {
		t.Errorf("Junction(J999) error = %v, want ErrJunctionNotFound", err)
	}

	cor, err := table.Corridor("route-4")
	if err != nil || cor.DefaultClass != arbitration.ClassCritical || len(cor.JunctionIDs) != 3 {
		t.Errorf("Corridor(route-4) = (%+v, %v)", cor, err)
	}
	if _, err := table.Corridor("route-9"); !errors.Is(err, ErrCorridorNotFound) {
		t.Errorf("Corridor(route-9) error = %v, want ErrCorridorNotFound", err)
	}

	vt, err := table.VehicleType("police")
	if err != nil || vt.Class != arbitration.ClassHigh {
		t.Errorf("VehicleType(police) = (%+v, %v)", vt, err)
	}
	if _, err := table.VehicleType("bicycle"); !errors.Is(err, ErrVehicleTypeNotFound) {
		t.Errorf("VehicleType(bicycle) error = %v, want ErrVehicleTypeNotFound", err)
	}

	phases, err := table.PhasesFor("J001")
	if err != nil || len(phases) != 5 || phases[0].DurationSeconds != 45 {
		t.Errorf("PhasesFor(J001) = (%+v, %v)", phases, err)
	}
	if _, err := table.PhasesFor("J999"); !errors.Is(err, arbitration.ErrUnknownJunction) {
		t.Errorf("PhasesFor(J999) error = %v, want arbitration.ErrUnknownJunction", err)
	}
	if table.PhaseTable().Len() != 5 {
		t.Errorf("PhaseTable().Len() = %d, want 5", table.PhaseTable().Len())
	}
}

func TestNewTable_IsolatedFromSource(t *testing.T) {
	c := DefaultCatalogue()
	table, err := NewTable(c)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	c.Corridors[0].JunctionIDs[0] = "J999"
	c.Junctions[0].Phases[0].Name = "changed"

	cor, _ := table.Corridor("route-1")
	if cor.JunctionIDs[0] != "J001" {
		t.Error("table corridor shares memory with the source catalogue")
	}
	j, _ := table.Junction("J001")
	if j.Phases[0].Name != "Outer Ring Road" {
		t.Error("table junction shares memory with the source catalogue")
	}
}

func TestNewTable_Invalid(t *testing.T) {
	if _, err := NewTable(nil); !errors.Is(err, ErrInvalidCatalogue) {
		t.Errorf("NewTable(nil) error = %v", err)
	}
	if _, err := NewTable(&Catalogue{}); !errors.Is(err, ErrInvalidCatalogue) {
		t.Errorf("NewTable(empty) error = %v", err)
	}
}

func TestTable_CatalogueRoundTrip(t *testing.T) {
	table, err := NewTable(DefaultCatalogue())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	again, err := NewTable(table.Catalogue())
	if err != nil {
		t.Fatalf("NewTable(Catalogue()) error = %v", err)
	}
	if len(again.Corridors()) != 4 || len(again.VehicleTypes()) != 4 || len(again.Junctions()) != 5 {
		t.Error("rebuilt table lost entries")
	}
}
