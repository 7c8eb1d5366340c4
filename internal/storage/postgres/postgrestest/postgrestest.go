// Package postgrestest runs a throwaway Postgres container for integration tests.
package postgrestest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/mcoot/dotareg/internal/storage/postgres"
)

// Start runs a migrated Postgres for the lifetime of t
func Start(t testing.TB) *bun.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dotareg"),
		tcpostgres.WithUsername("dotareg"),
		tcpostgres.WithPassword("dotareg"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(ctx, postgres.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db))
	return db
}

// Reset empties every table
func Reset(t testing.TB, db *bun.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`TRUNCATE players, registration_sessions, admin_users, admin_sessions`)
	require.NoError(t, err)
}
