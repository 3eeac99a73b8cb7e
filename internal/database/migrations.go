package database

import (
	"context"
	_ "embed" // needed for embedding files
	"fmt"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// RunMigrations applies the signals schema. The statements are idempotent,
// so running them on every start is safe.
func (db *DB) RunMigrations(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, initialSchema); err != nil {
		return fmt.Errorf("error running signals schema migration: %w", err)
	}
	return nil
}
