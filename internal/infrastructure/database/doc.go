// Package database provides SQLite connectivity for Nexus Grid.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout
//   - Versioned schema migrations read from any fs.FS
//   - Transaction helpers
//
// The store holds the junction catalogue (junctions, phases, corridors and
// vehicle types) and the control event journal. The arbitration engine
// itself never touches the database; its state is in memory.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
