// Package migrations embeds the driver's SQL schema migrations.
package migrations

import "embed"

// FS holds the migration files at its root, in the layout expected by
// database.Migrate.
//
//go:embed *.sql
var FS embed.FS
