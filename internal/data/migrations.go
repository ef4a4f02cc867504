package data

// Package data provides Postgres-backed repositories for durable portal
// state: role overrides, the runtime domain whitelist, and the activity log.

import (
	"context"
	"database/sql"

	"github.com/terralink-energy/portal-api/internal/migrate"
)

// RunMigrations sets up the required schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
