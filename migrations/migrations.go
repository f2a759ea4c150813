// Package migrations embeds the SQL schema migrations applied by pkg/database.Migrator.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
