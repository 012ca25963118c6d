package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/healthbridge/internal/infrastructure/config"
)

func testJournalConfig(t *testing.T) config.JournalConfig {
	t.Helper()
	return config.JournalConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "nested", "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}
}

// openTestDB opens a database in a temp directory, closed on cleanup.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), testJournalConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen(t *testing.T) {
	cfg := testJournalConfig(t)

	db, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if db.Path() != cfg.Path {
		t.Errorf("Path() = %q, want %q", db.Path(), cfg.Path)
	}
	if _, err := os.Stat(filepath.Dir(cfg.Path)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}

	var mode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestOpenWithoutWAL(t *testing.T) {
	cfg := testJournalConfig(t)
	cfg.WALMode = false

	db, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	var mode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if mode == "wal" {
		t.Error("journal_mode = wal, want default")
	}
}

func TestOpenUnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Open(context.Background(), config.JournalConfig{Path: filepath.Join(blocker, "journal.db")})
	if err == nil {
		t.Fatal("Open() expected error when the parent is a file")
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db, err := Open(context.Background(), testJournalConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close should fail")
	}

	var nilDB *DB
	if err := nilDB.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestExecContextWrapsErrors(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.ExecContext(context.Background(), "NOT SQL"); err == nil {
		t.Fatal("ExecContext() expected error")
	}
}

func TestBeginTxRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}
