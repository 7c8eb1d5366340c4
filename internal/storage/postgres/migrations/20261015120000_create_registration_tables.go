package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS registration_sessions (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT FALSE,
				start_time TIMESTAMPTZ NULL,
				expiry TIMESTAMPTZ NULL,
				max_players INTEGER NULL CHECK (max_players > 0),
				closed_at TIMESTAMPTZ NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS registration_sessions_single_active
				ON registration_sessions (is_active) WHERE is_active`,
			`CREATE TABLE IF NOT EXISTS players (
				id TEXT PRIMARY KEY,
				list TEXT NOT NULL CHECK (list IN ('registrations', 'masterlist')),
				name TEXT NOT NULL,
				dota2id TEXT NOT NULL,
				mmr INTEGER NOT NULL CHECK (mmr BETWEEN 0 AND 20000),
				notes TEXT NOT NULL DEFAULT '',
				registration_session_id TEXT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS players_list_dota2id ON players (list, dota2id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS players_list_name ON players (list, lower(name))`,
			`CREATE INDEX IF NOT EXISTS players_registration_session ON players (registration_session_id)`,
			`CREATE TABLE IF NOT EXISTS admin_users (
				id TEXT PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'admin',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS admin_sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				username TEXT NOT NULL,
				role TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				expires_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS admin_sessions_expires_at ON admin_sessions (expires_at)`,
		}

		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create registration tables: %w", err)
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS admin_sessions, admin_users, players, registration_sessions`)
		if err != nil {
			return fmt.Errorf("drop registration tables: %w", err)
		}
		return nil
	})
}
