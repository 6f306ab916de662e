// Package db provides the pgx connection pool, migrations, and the
// subscription journal.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// NewPool creates a new pgx connection pool from the given database URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}

	// The journal writes one row per subscription change; a small pool suffices.
	config.MaxConns = 8
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// MigrationStatus prints which migration files in migrationPath have been
// applied and returns the names still pending.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) ([]string, error) {
	const statusLogPrefix = "db:MigrationStatus"

	files, err := LoadMigrations(migrationPath)
	if err != nil {
		return nil, fmt.Errorf("%s - load migration list: %w", statusLogPrefix, err)
	}

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read applied migrations: %w", statusLogPrefix, err)
	}

	var pending []string
	for _, m := range files {
		state := "applied"
		if !applied[m.Name] {
			state = "pending"
			pending = append(pending, m.Name)
		}
		fmt.Printf("  %-40s %s\n", m.Name, state)
	}
	fmt.Printf("Migration status: %d of %d applied in %s\n", len(files)-len(pending), len(files), migrationPath)
	return pending, nil
}
