package session_repo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/repository"
)

func TestHistoryQuery(t *testing.T) {
	before := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   repository.HistoryFilter
		contains []string
		args     int
	}{
		{"defaults", repository.HistoryFilter{}, []string{"WHERE user_id = $1", "ORDER BY ended_at DESC", "LIMIT 50"}, 1},
		{"game", repository.HistoryFilter{GameID: 8}, []string{"user_id = $1 AND game_id = $2"}, 2},
		{"before", repository.HistoryFilter{Before: before, Limit: 10}, []string{"ended_at < $2", "LIMIT 10"}, 2},
		{"capped", repository.HistoryFilter{Limit: 10000}, []string{"LIMIT 200"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlStr, args, err := historyQuery(7, tt.filter).ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(sqlStr, want) {
					t.Errorf("Query %q should contain %q", sqlStr, want)
				}
			}
			if len(args) != tt.args {
				t.Errorf("Expected %d args, got %d", tt.args, len(args))
			}
		})
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	txManager, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		t.Fatalf("manager.New failed: %v", err)
	}
	repo := NewSessionRepository(pool, txManager)

	now := time.Now().UTC().Truncate(time.Millisecond)
	userID := now.UnixNano()
	s := &models.BetSession{
		ID: models.GenerateSessionID(), UserID: userID, GameID: 8, CoinID: 1,
		Amount: decimal.NewFromInt(10), NumGames: 1,
		State: models.SessionSettled, StopReason: models.StopCashout,
		Multiplier: decimal.RequireFromString("1.4786"),
		Wagered:    decimal.NewFromInt(10), Payout: decimal.RequireFromString("14.786"),
		ClientSeed: "c", ServerSeedHash: "h", Data: []byte(`{"num_mines":3}`),
		GameState: []byte(`{"num_mines":3}`), CreatedAt: now, EndedAt: now,
		Rounds: []models.Round{{
			Index: 0, Nonce: 4, Stake: decimal.NewFromInt(10), Outcome: []byte(`{"hit":false}`),
			Multiplier: decimal.RequireFromString("1.4786"), Payout: decimal.Zero,
			Balance: decimal.NewFromInt(90), CreatedAt: now,
		}},
	}

	if err := repo.ArchiveSession(ctx, s); err != nil {
		t.Fatalf("ArchiveSession failed: %v", err)
	}
	if err := repo.ArchiveSession(ctx, s); err != nil {
		t.Fatalf("Archiving twice should be harmless: %v", err)
	}

	got, err := repo.GetSession(ctx, userID, s.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.Payout.Equal(s.Payout) || len(got.Rounds) != 1 || got.Rounds[0].Nonce != 4 {
		t.Errorf("Unexpected archived session %+v", got)
	}

	history, err := repo.History(ctx, userID, repository.HistoryFilter{GameID: 8})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != s.ID {
		t.Errorf("Expected the archived session in history, got %d entries", len(history))
	}

	if _, err := repo.GetSession(ctx, userID+1, s.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Other users must not see the session, got %v", err)
	}
}
