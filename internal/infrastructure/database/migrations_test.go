package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20261001_090000_first.up.sql":   {Data: []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);")},
		"20261001_090000_first.down.sql": {Data: []byte("DROP TABLE first;")},
		"20261002_090000_second.up.sql":  {Data: []byte("CREATE TABLE second (id INTEGER PRIMARY KEY);")},
		"README.md":                      {Data: []byte("not a migration")},
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"first", "second"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2/0", len(applied), len(pending))
	}
	if applied[0].Version != "20261001_090000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("applied[0] = %+v", applied[0])
	}

	// Idempotent.
	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrateStopsAtFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20261003_090000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE")}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 || len(pending) != 1 || pending[0].Name != "broken" {
		t.Errorf("applied=%d pending=%v", len(applied), pending)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(context.Background(), fstest.MapFS{}); err != nil {
		t.Errorf("Migrate(empty) error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20261001_090000_journal.up.sql", "20261001_090000", true, true},
		{"20261001_090000_journal.down.sql", "20261001_090000", false, true},
		{"20261001_090000.up.sql", "20261001_090000", true, true},
		{"20261001_journal.sql", "", false, false},
		{"journal.up.sql", "", false, false},
		{"20261001_090000_journal.up.txt", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.name, version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := map[string]string{
		"20261001_090000_journal.up.sql":      "journal",
		"20261001_090000_day_attempts.up.sql": "day_attempts",
		"20261001_090000.up.sql":              "20261001_090000",
	}
	for file, want := range tests {
		if got := extractMigrationName(file); got != want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", file, got, want)
		}
	}
}
