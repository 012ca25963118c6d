// Package database provides SQLite connectivity for the healthbridge run journal.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Forward-only schema migrations read from an fs.FS
//   - Connection pooling and lifecycle management
//
// The journal is advisory: the progress file stays the source of truth for
// which days are imported, so losing the database loses history only.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
