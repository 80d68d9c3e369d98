package session_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bet_sessions (
		id               TEXT PRIMARY KEY,
		user_id          BIGINT NOT NULL,
		game_id          BIGINT NOT NULL,
		coin_id          BIGINT NOT NULL,
		amount           NUMERIC NOT NULL,
		num_games        INTEGER NOT NULL,
		state            TEXT NOT NULL,
		stop_reason      TEXT NOT NULL,
		multiplier       NUMERIC NOT NULL,
		wagered          NUMERIC NOT NULL,
		payout           NUMERIC NOT NULL,
		client_seed      TEXT NOT NULL,
		server_seed_hash TEXT NOT NULL,
		data             JSONB NOT NULL,
		game_state       JSONB,
		created_at       TIMESTAMPTZ NOT NULL,
		ended_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bet_sessions_user_ended_idx ON bet_sessions (user_id, ended_at DESC)`,
	`CREATE TABLE IF NOT EXISTS bet_rounds (
		session_id TEXT NOT NULL REFERENCES bet_sessions (id) ON DELETE CASCADE,
		idx        INTEGER NOT NULL,
		nonce      BIGINT NOT NULL,
		stake      NUMERIC NOT NULL,
		multiplier NUMERIC NOT NULL,
		payout     NUMERIC NOT NULL,
		outcome    JSONB NOT NULL,
		state      JSONB,
		balance    NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (session_id, idx)
	)`,
}

// EnsureSchema creates the archive tables when they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
