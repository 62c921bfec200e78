package db

import "embed"

// MigrationFS embeds the schema for the reading, user and earthquake tables.
// Applied by internal/db/migrate (cmd/migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
