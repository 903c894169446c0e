// Package embedded provides static assets compiled into the binary.
package embedded

import (
	"embed"
)

// Schemas holds the SQLite schema for each database, one file per
// database name (e.g. schemas/cache_schema.sql).
//
//go:embed schemas/*.sql
var Schemas embed.FS
