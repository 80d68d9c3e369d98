package session_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/repository"
)

const (
	sessionsTable = "bet_sessions"
	roundsTable   = "bet_rounds"

	colID             = "id"
	colUserID         = "user_id"
	colGameID         = "game_id"
	colCoinID         = "coin_id"
	colAmount         = "amount"
	colNumGames       = "num_games"
	colState          = "state"
	colStopReason     = "stop_reason"
	colMultiplier     = "multiplier"
	colWagered        = "wagered"
	colPayout         = "payout"
	colClientSeed     = "client_seed"
	colServerSeedHash = "server_seed_hash"
	colData           = "data"
	colGameState      = "game_state"
	colCreatedAt      = "created_at"
	colEndedAt        = "ended_at"

	colSessionID = "session_id"
	colIdx       = "idx"
	colNonce     = "nonce"
	colStake     = "stake"
	colOutcome   = "outcome"
	colBalance   = "balance"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	roundsPerInsert     = 500
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var sessionColumns = []string{
	colID, colUserID, colGameID, colCoinID, colAmount, colNumGames, colState, colStopReason,
	colMultiplier, colWagered, colPayout, colClientSeed, colServerSeedHash, colData, colGameState,
	colCreatedAt, colEndedAt,
}

var roundColumns = []string{
	colIdx, colNonce, colStake, colMultiplier, colPayout, colOutcome, colState, colBalance, colCreatedAt,
}

type repo struct {
	db        *pgxpool.Pool
	txManager trm.Manager
	getter    *trmpgx.CtxGetter
}

func NewSessionRepository(db *pgxpool.Pool, txManager trm.Manager) repository.SessionRepository {
	return &repo{
		db:        db,
		txManager: txManager,
		getter:    trmpgx.DefaultCtxGetter,
	}
}

// conn returns the transaction started by txManager, if any.
func (r *repo) conn(ctx context.Context) trmpgx.Tr {
	return r.getter.DefaultTrOrDB(ctx, r.db)
}

// nullJSON keeps empty game state as SQL NULL.
func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// ArchiveSession writes a finished session and its rounds in one
// transaction. Archiving the same session twice is harmless.
func (r *repo) ArchiveSession(ctx context.Context, s *models.BetSession) error {
	return r.txManager.Do(ctx, func(ctx context.Context) error {
		if err := r.upsertSession(ctx, s); err != nil {
			return err
		}
		for start := 0; start < len(s.Rounds); start += roundsPerInsert {
			end := min(start+roundsPerInsert, len(s.Rounds))
			if err := r.insertRounds(ctx, s.ID, s.Rounds[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) upsertSession(ctx context.Context, s *models.BetSession) error {
	query := psql.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, s.GameID, s.CoinID, s.Amount, s.NumGames, string(s.State), string(s.StopReason),
			s.Multiplier, s.Wagered, s.Payout, s.ClientSeed, s.ServerSeedHash, []byte(s.Data), nullJSON(s.GameState),
			s.CreatedAt, s.EndedAt).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s",
			colID, colState, colState, colStopReason, colStopReason, colPayout, colPayout, colWagered, colWagered,
			colEndedAt, colEndedAt))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to archive session %s: %w", s.ID, err)
	}
	return nil
}

func (r *repo) insertRounds(ctx context.Context, sessionID string, rounds []models.Round) error {
	query := psql.Insert(roundsTable).
		Columns(append([]string{colSessionID}, roundColumns...)...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s, %s) DO NOTHING", colSessionID, colIdx))
	for _, rd := range rounds {
		query = query.Values(sessionID, rd.Index, int64(rd.Nonce), rd.Stake, rd.Multiplier, rd.Payout,
			[]byte(rd.Outcome), nullJSON(rd.State), rd.Balance, rd.CreatedAt)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to archive rounds of %s: %w", sessionID, err)
	}
	return nil
}

func historyQuery(userID int64, f repository.HistoryFilter) sq.SelectBuilder {
	limit := f.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	query := psql.Select(sessionColumns...).
		From(sessionsTable).
		Where(sq.Eq{colUserID: userID}).
		OrderBy(colEndedAt + " DESC").
		Limit(limit)
	if f.GameID > 0 {
		query = query.Where(sq.Eq{colGameID: f.GameID})
	}
	if !f.Before.IsZero() {
		query = query.Where(sq.Lt{colEndedAt: f.Before})
	}
	return query
}

// History lists finished sessions newest first, without their rounds.
func (r *repo) History(ctx context.Context, userID int64, f repository.HistoryFilter) ([]*models.BetSession, error) {
	sqlStr, args, err := historyQuery(userID, f).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	sessions := []*models.BetSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *repo) GetSession(ctx context.Context, userID int64, sessionID string) (*models.BetSession, error) {
	sqlStr, args, err := psql.Select(sessionColumns...).
		From(sessionsTable).
		Where(sq.Eq{colID: sessionID, colUserID: userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	s, err := scanSession(r.conn(ctx).QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sqlStr, args, err = psql.Select(roundColumns...).
		From(roundsTable).
		Where(sq.Eq{colSessionID: sessionID}).
		OrderBy(colIdx).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rd    models.Round
			nonce int64
			state []byte
		)
		if err := rows.Scan(&rd.Index, &nonce, &rd.Stake, &rd.Multiplier, &rd.Payout,
			&rd.Outcome, &state, &rd.Balance, &rd.CreatedAt); err != nil {
			return nil, err
		}
		rd.Nonce = uint64(nonce)
		rd.State = state
		s.Rounds = append(s.Rounds, rd)
	}
	return s, rows.Err()
}

func scanSession(row pgx.Row) (*models.BetSession, error) {
	var (
		s          models.BetSession
		state      string
		stopReason string
		gameState  []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.GameID, &s.CoinID, &s.Amount, &s.NumGames, &state, &stopReason,
		&s.Multiplier, &s.Wagered, &s.Payout, &s.ClientSeed, &s.ServerSeedHash, &s.Data, &gameState,
		&s.CreatedAt, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	s.State = models.SessionState(state)
	s.StopReason = models.StopReason(stopReason)
	s.GameState = gameState
	s.UpdatedAt = s.EndedAt
	return &s, nil
}
