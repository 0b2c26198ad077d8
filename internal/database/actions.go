// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/palace/internal/models"
)

// Journal action types with side effects on the games row.
const (
	actionGameEnded = "game_ended"
)

// Store writes the action journal to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveActions persists a batch in one transaction. Replayed records are
// ignored, keyed by (game_id, action_index).
func (s *Store) SaveActions(ctx context.Context, recs []models.ActionRecord) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.GameID, rec.ActionIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx save actions: %w", err)
	}
	return nil
}

// insertActionTx upserts the game row, inserts the action and, for a
// game_ended record, completes the game.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec models.ActionRecord) error {
	at := time.UnixMilli(rec.Timestamp)

	upsertGameQ := `
		INSERT INTO games (id, room_code, status, start_time)
		VALUES ($1, $2, 'in_progress', $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.RoomCode, at); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (game_id, action_index, actor_id, action_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ, rec.GameID, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, at); err != nil {
		return err
	}

	if rec.ActionType == actionGameEnded {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', winner_id = $2, end_time = $3
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, rec.ActorID, at); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned closes out a game that stopped producing actions.
func (s *Store) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := s.pool.Exec(ctx, q, gameID); err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}
