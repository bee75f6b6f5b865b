package junction

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/database"
)

// Repository persists the catalogue.
type Repository interface {
	// Save replaces the stored catalogue with c.
	Save(ctx context.Context, c *Catalogue) error
	// Load returns the stored catalogue, or ErrEmptyStore.
	Load(ctx context.Context) (*Catalogue, error)
}

// SQLiteRepository stores the catalogue in the junctions, phases,
// corridors, corridor_junctions and vehicle_types tables.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a catalogue repository on a migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save validates c and replaces every catalogue row in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, c *Catalogue) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"corridor_junctions", "corridors", "phases", "junctions", "vehicle_types"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil { //nolint:gosec // fixed table names
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		for pos, j := range c.Junctions {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO junctions (id, name, position) VALUES (?, ?, ?)",
				j.ID, j.Name, pos); err != nil {
				return fmt.Errorf("inserting junction %s: %w", j.ID, err)
			}
			for i, p := range j.Phases {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO phases (junction_id, position, id, name, duration_seconds) VALUES (?, ?, ?, ?, ?)",
					j.ID, i, p.ID, p.Name, p.DurationSeconds); err != nil {
					return fmt.Errorf("inserting phase %s/%s: %w", j.ID, p.ID, err)
				}
			}
		}

		for _, cor := range c.Corridors {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO corridors (id, name, default_class) VALUES (?, ?, ?)",
				cor.ID, cor.Name, string(cor.DefaultClass)); err != nil {
				return fmt.Errorf("inserting corridor %s: %w", cor.ID, err)
			}
			for i, jid := range cor.JunctionIDs {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO corridor_junctions (corridor_id, position, junction_id) VALUES (?, ?, ?)",
					cor.ID, i, jid); err != nil {
					return fmt.Errorf("inserting corridor %s junction %s: %w", cor.ID, jid, err)
				}
			}
		}

		for _, vt := range c.VehicleTypes {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO vehicle_types (id, name, class) VALUES (?, ?, ?)",
				vt.ID, vt.Name, string(vt.Class)); err != nil {
				return fmt.Errorf("inserting vehicle type %s: %w", vt.ID, err)
			}
		}
		return nil
	})
}

// Load reads the stored catalogue in its saved order.
func (r *SQLiteRepository) Load(ctx context.Context) (*Catalogue, error) {
	c := &Catalogue{}

	junctions, err := r.loadJunctions(ctx)
	if err != nil {
		return nil, err
	}
	if len(junctions) == 0 {
		return nil, ErrEmptyStore
	}
	c.Junctions = junctions

	if c.Corridors, err = r.loadCorridors(ctx); err != nil {
		return nil, err
	}
	if c.VehicleTypes, err = r.loadVehicleTypes(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepository) loadJunctions(ctx context.Context) ([]Junction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.name, p.id, p.name, p.duration_seconds
		FROM junctions j
		JOIN phases p ON p.junction_id = j.id
		ORDER BY j.position, p.position`)
	if err != nil {
		return nil, fmt.Errorf("querying junctions: %w", err)
	}
	defer rows.Close()

	var out []Junction
	for rows.Next() {
		var jid, jname string
		var p Phase
		if err := rows.Scan(&jid, &jname, &p.ID, &p.Name, &p.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scanning junction: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != jid {
			out = append(out, Junction{ID: jid, Name: jname})
		}
		last := &out[len(out)-1]
		last.Phases = append(last.Phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating junctions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) loadCorridors(ctx context.Context) ([]Corridor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.default_class, cj.junction_id
		FROM corridors c
		JOIN corridor_junctions cj ON cj.corridor_id = c.id
		ORDER BY c.id, cj.position`)
	if err != nil {
		return nil, fmt.Errorf("querying corridors: %w", err)
	}
	defer rows.Close()

	var out []Corridor
	for rows.Next() {
		var id, name, class, jid string
		if err := rows.Scan(&id, &name, &class, &jid); err != nil {
			return nil, fmt.Errorf("scanning corridor: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != id {
			out = append(out, Corridor{ID: id, Name: name, DefaultClass: arbitration.VehicleClass(class)})
		}
		last := &out[len(out)-1]
		last.JunctionIDs = append(last.JunctionIDs, jid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corridors: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) loadVehicleTypes(ctx context.Context) ([]VehicleType, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, class FROM vehicle_types ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying vehicle types: %w", err)
	}
	defer rows.Close()

	var out []VehicleType
	for rows.Next() {
		var vt VehicleType
		var class string
		if err := rows.Scan(&vt.ID, &vt.Name, &class); err != nil {
			return nil, fmt.Errorf("scanning vehicle type: %w", err)
		}
		vt.Class = arbitration.VehicleClass(class)
		out = append(out, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vehicle types: %w", err)
	}
	return out, nil
}
