// Package migrations embeds the journal's SQL migration files into the binary.
package migrations

import "embed"

// FS holds the *.sql migrations at its root, ready for database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
