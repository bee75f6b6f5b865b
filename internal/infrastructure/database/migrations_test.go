package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260301_090000_junctions.up.sql":   {Data: []byte("CREATE TABLE junctions (id TEXT PRIMARY KEY);")},
		"20260301_090000_junctions.down.sql": {Data: []byte("DROP TABLE junctions;")},
		"20260302_090000_events.up.sql":      {Data: []byte("CREATE TABLE events (id TEXT PRIMARY KEY);")},
		"20260302_090000_events.down.sql":    {Data: []byte("DROP TABLE events;")},
		"README.md":                          {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	n, err := db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}
	for _, table := range []string{"junctions", "events", "schema_migrations"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing", table)
		}
	}

	// Second run is a no-op.
	n, err = db.Migrate(ctx, testMigrations())
	if err != nil || n != 0 {
		t.Errorf("second Migrate() = (%d, %v), want (0, nil)", n, err)
	}
}

func TestMigrate_FailureStopsRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	src := fstest.MapFS{
		"20260301_090000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260302_090000_bad.up.sql":  {Data: []byte("CREATE TABLE nonsense (")},
	}

	n, err := db.Migrate(ctx, src)
	if err == nil {
		t.Fatal("Migrate() expected error for bad SQL")
	}
	if n != 1 {
		t.Errorf("applied = %d, want 1", n)
	}
	if !tableExists(t, db, "good") {
		t.Error("earlier migration should stay committed")
	}
}

func TestMigrateDown(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "events") {
		t.Error("events table should be dropped")
	}
	if !tableExists(t, db, "junctions") {
		t.Error("junctions table should remain")
	}

	_, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Version != "20260302_090000" {
		t.Errorf("pending = %+v, want the events migration", pending)
	}
}

func TestMigrateDown_NothingApplied(t *testing.T) {
	db := openTestDB(t)
	if err := db.MigrateDown(context.Background(), testMigrations()); err != nil {
		t.Errorf("MigrateDown() on empty db error = %v", err)
	}
}

func TestMigrate_NilSource(t *testing.T) {
	db := openTestDB(t)
	n, err := db.Migrate(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("Migrate(nil) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestLoadMigrations_OrphanDown(t *testing.T) {
	src := fstest.MapFS{
		"20260301_090000_orphan.down.sql": {Data: []byte("DROP TABLE x;")},
	}
	if _, err := LoadMigrations(src); err == nil {
		t.Error("LoadMigrations() expected error for down without up")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_090000_junctions.up.sql", "20260301_090000", "junctions", true, true},
		{"20260301_090000_control_events.down.sql", "20260301_090000", "control_events", false, true},
		{"20260301_090000.up.sql", "20260301_090000", "20260301_090000", true, true},
		{"20260301_090000_junctions.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
		{"2026_09_x.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
