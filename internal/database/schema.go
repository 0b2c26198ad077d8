// internal/database/schema.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id         UUID PRIMARY KEY,
		room_code  TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'in_progress',
		winner_id  UUID,
		start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS game_actions (
		game_id      UUID NOT NULL REFERENCES games (id),
		action_index INT NOT NULL,
		actor_id     UUID NOT NULL,
		action_type  TEXT NOT NULL,
		payload      JSONB,
		created_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (game_id, action_index)
	)`,
}

// EnsureSchema creates the journal tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
