package db

import "embed"

// MigrationFS embeds the SQL migration files under internal/db/migrations so
// cmd/migrate needs no filesystem access at runtime.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
