package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
)

type EngineConfig struct {
	LedgerTimeout time.Duration
	SessionTTL    time.Duration
	MaxAutoBets   int
}

func EngineConfigFrom(cfg *config.Config) EngineConfig {
	return EngineConfig{
		LedgerTimeout: cfg.LedgerTimeout,
		SessionTTL:    cfg.SessionTTL,
		MaxAutoBets:   cfg.MaxAutoBets,
	}
}

type Option func(*GameEngine)

func WithPublisher(p Publisher) Option {
	return func(ge *GameEngine) { ge.publisher = p }
}

func WithSessionStore(s SessionStore) Option {
	return func(ge *GameEngine) { ge.store = s }
}

func WithArchiver(a Archiver) Option {
	return func(ge *GameEngine) { ge.archive = a }
}

func WithClock(now func() time.Time) Option {
	return func(ge *GameEngine) { ge.now = now }
}

// GameEngine runs bet sessions. Every operation on a (user, game) pair holds
// that pair's slot, and every outcome is drawn under the user's seed lock.
type GameEngine struct {
	cfg       EngineConfig
	registry  *games.Registry
	seeds     *SeedLedger
	ledger    Ledger
	sessions  *sessionTable
	publisher Publisher
	store     SessionStore
	archive   Archiver
	now       func() time.Time
}

func NewGameEngine(cfg EngineConfig, registry *games.Registry, seeds *SeedLedger, ledger Ledger, opts ...Option) *GameEngine {
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 2 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 10 * time.Minute
	}
	if cfg.MaxAutoBets < 1 {
		cfg.MaxAutoBets = 100
	}

	ge := &GameEngine{
		cfg:      cfg,
		registry: registry,
		seeds:    seeds,
		ledger:   ledger,
		sessions: newSessionTable(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ge)
	}
	return ge
}

func (ge *GameEngine) Games() []models.GameInfo {
	return ge.registry.List()
}

// MakeBet opens a session and plays its first round, or every round of an
// auto-bet run. Stateful games stop after one round and wait for
// ContinueGame or Cashout unless that round finished the game.
func (ge *GameEngine) MakeBet(ctx context.Context, userID int64, req *models.MakeBetRequest) (*models.BetResult, error) {
	if err := req.Validate(ge.cfg.MaxAutoBets); err != nil {
		return nil, err
	}
	g, err := ge.registry.Get(req.GameID)
	if err != nil {
		return nil, err
	}
	round, err := g.Decode(req.Data.Raw())
	if err != nil {
		return nil, err
	}
	stateful := games.IsStateful(g)
	if stateful && req.NumGames > 1 {
		return nil, models.Validationf("%s does not support auto-bet", g.Info().Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sl, err := ge.sessions.acquire(userID, req.GameID)
	if err != nil {
		return nil, err
	}
	defer sl.mu.Unlock()

	if sl.session != nil && sl.session.State.Open() {
		return nil, fmt.Errorf("game %d has an unfinished session: %w", req.GameID, models.ErrSessionConflict)
	}

	now := ge.now()
	session := &models.BetSession{
		ID:                models.GenerateSessionID(),
		UserID:            userID,
		GameID:            req.GameID,
		CoinID:            req.CoinID,
		Amount:            req.Amount,
		StopLoss:          req.StopLoss,
		StopWin:           req.StopWin,
		NumGames:          req.NumGames,
		NumGamesRemaining: req.NumGames,
		Data:              req.Data.Raw(),
		State:             models.SessionActive,
		Multiplier:        decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	prev := sl.session
	sl.session = session
	sl.publish()
	ge.sessions.opened(userID)

	result := &models.BetResult{Rounds: make([]models.Round, 0, req.NumGames)}
	for i := 0; i < req.NumGames; i++ {
		if i > 0 && ctx.Err() != nil {
			session.StopReason = models.StopCancelled
			break
		}

		rec, out, err := ge.playRound(ctx, session, round, req.Amount)
		if err != nil {
			if i == 0 {
				sl.session = prev
				sl.publish()
				ge.sessions.closed(userID)
				return nil, err
			}
			log.Printf("Auto-bet %s stopped after %d rounds: %v", session.ID, i, err)
			session.StopReason = stopReasonFor(err)
			break
		}
		session.NumGamesRemaining--
		result.Rounds = append(result.Rounds, rec)
		result.Balance = rec.Balance
		sl.publish()

		if stateful && !out.Finished {
			session.State = models.SessionAwaitingContinuation
			ge.persist(ctx, session)
			sl.publish()
			result.Session = session.Clone()
			return result, nil
		}
		if reason := stopCondition(session); reason != "" {
			session.StopReason = reason
			break
		}
	}

	reason := models.StopCompleted
	if stateful {
		reason = models.StopFinished
	}
	ge.finish(ctx, sl, models.SessionSettled, reason)
	result.Session = session.Clone()
	return result, nil
}

func stopCondition(s *models.BetSession) models.StopReason {
	profit := s.Profit()
	if s.StopLoss.IsPositive() && profit.LessThanOrEqual(s.StopLoss.Neg()) {
		return models.StopLoss
	}
	if s.StopWin.IsPositive() && profit.GreaterThanOrEqual(s.StopWin) {
		return models.StopWin
	}
	return ""
}

func stopReasonFor(err error) models.StopReason {
	switch {
	case errors.Is(err, models.ErrInsufficientBalance):
		return models.StopInsufficientBalance
	case errors.Is(err, models.ErrDependencyTimeout):
		return models.StopDependencyTimeout
	default:
		return models.StopAborted
	}
}

func (ge *GameEngine) statefulGame(gameID int64) (games.StatefulGame, error) {
	g, err := ge.registry.Get(gameID)
	if err != nil {
		return nil, err
	}
	sg, ok := g.(games.StatefulGame)
	if !ok {
		return nil, fmt.Errorf("%s has no continuation: %w", g.Info().Name, models.ErrNoActiveSession)
	}
	return sg, nil
}

// awaiting returns the slot's session when it is waiting for the player.
func awaiting(sl *slot, coinID int64) (*models.BetSession, error) {
	s := sl.session
	if s == nil || s.State != models.SessionAwaitingContinuation {
		return nil, models.ErrNoActiveSession
	}
	if coinID != 0 && coinID != s.CoinID {
		return nil, models.Validationf("session was opened with coin %d", s.CoinID)
	}
	return s, nil
}

func (ge *GameEngine) ContinueGame(ctx context.Context, userID int64, req *models.ContinueGameRequest) (*models.BetResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	g, err := ge.statefulGame(req.GameID)
	if err != nil {
		return nil, err
	}

	sl, err := ge.sessions.acquire(userID, req.GameID)
	if err != nil {
		return nil, err
	}
	defer sl.mu.Unlock()

	session, err := awaiting(sl, req.CoinID)
	if err != nil {
		return nil, err
	}

	round, err := g.DecodeContinue(session.GameState, req.Data.Raw())
	if errors.Is(err, games.ErrCashoutRequested) {
		return ge.cashout(ctx, sl, g)
	}
	if err != nil {
		return nil, err
	}

	session.State = models.SessionActive
	sl.publish()

	rec, out, err := ge.playRound(ctx, session, round, decimal.Zero)
	if err != nil {
		session.State = models.SessionAwaitingContinuation
		sl.publish()
		return nil, err
	}

	if out.Finished {
		ge.finish(ctx, sl, models.SessionSettled, models.StopFinished)
	} else {
		session.State = models.SessionAwaitingContinuation
		ge.persist(ctx, session)
		sl.publish()
	}

	return &models.BetResult{
		Session: session.Clone(),
		Rounds:  []models.Round{rec},
		Balance: rec.Balance,
	}, nil
}

func (ge *GameEngine) Cashout(ctx context.Context, userID int64, ref *models.GameRef) (*models.BetResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	g, err := ge.statefulGame(ref.GameID)
	if err != nil {
		return nil, err
	}

	sl, err := ge.sessions.acquire(userID, ref.GameID)
	if err != nil {
		return nil, err
	}
	defer sl.mu.Unlock()

	if _, err := awaiting(sl, ref.CoinID); err != nil {
		return nil, err
	}
	return ge.cashout(ctx, sl, g)
}

func (ge *GameEngine) cashout(ctx context.Context, sl *slot, g games.StatefulGame) (*models.BetResult, error) {
	session := sl.session

	mult, err := g.Cashout(session.GameState)
	if err != nil {
		return nil, err
	}
	amount := session.Amount.Mul(mult)

	balance, err := ge.credit(ctx, session, models.CashoutKey(session.ID, session.Voids), amount)
	if err != nil {
		return nil, err
	}
	session.Payout = session.Payout.Add(amount)
	session.Multiplier = mult
	ge.finish(ctx, sl, models.SessionSettled, models.StopCashout)

	return &models.BetResult{
		Session: session.Clone(),
		Rounds:  []models.Round{},
		Balance: balance,
	}, nil
}

// GetState never waits on a running round; it reports the last published
// snapshot of the slot.
func (ge *GameEngine) GetState(userID int64, ref *models.GameRef) (*models.SessionSnapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if _, err := ge.registry.Get(ref.GameID); err != nil {
		return nil, err
	}

	var s *models.BetSession
	if sl := ge.sessions.lookup(userID, ref.GameID); sl != nil {
		s = sl.snapshot.Load()
	}
	if s == nil {
		return &models.SessionSnapshot{
			State:   models.SessionIdle,
			Actions: actionsFor(models.SessionIdle),
		}, nil
	}
	return &models.SessionSnapshot{
		Session: s.Clone(),
		State:   s.State,
		Actions: actionsFor(s.State),
	}, nil
}

func (ge *GameEngine) Seeds(ctx context.Context, userID int64) (models.SeedPair, error) {
	return ge.seeds.CurrentSeedPair(ctx, userID)
}

func (ge *GameEngine) RotateClientSeed(ctx context.Context, userID int64, seed string) (*models.SeedRotation, error) {
	if ge.sessions.hasOpen(userID) {
		return nil, fmt.Errorf("cannot rotate seeds during an unfinished session: %w", models.ErrSessionConflict)
	}
	return ge.seeds.RotateClientSeed(ctx, userID, seed)
}

func (ge *GameEngine) RotateServerSeed(ctx context.Context, userID int64) (*models.SeedRotation, error) {
	if ge.sessions.hasOpen(userID) {
		return nil, fmt.Errorf("cannot rotate seeds during an unfinished session: %w", models.ErrSessionConflict)
	}
	return ge.seeds.RotateServerSeed(ctx, userID)
}

func (ge *GameEngine) Balance(ctx context.Context, userID, coinID int64) (*models.BalanceResponse, error) {
	if coinID <= 0 {
		return nil, models.Validationf("coin_id is required")
	}
	bctx, cancel := context.WithTimeout(ctx, ge.cfg.LedgerTimeout)
	defer cancel()

	bal, err := ge.ledger.Balance(bctx, userID, coinID)
	if err != nil {
		return nil, fmt.Errorf("balance: %w: %v", models.ErrDependencyTimeout, err)
	}
	return &models.BalanceResponse{UserID: userID, CoinID: coinID, Balance: bal}, nil
}

// Verify recomputes a round from revealed seeds. It touches no session or
// balance state.
func (ge *GameEngine) Verify(req *models.VerifyRequest) (*models.VerifyResult, error) {
	if req.ServerSeed == "" || req.ClientSeed == "" {
		return nil, models.Validationf("server_seed and client_seed are required")
	}
	g, err := ge.registry.Get(req.GameID)
	if err != nil {
		return nil, err
	}

	var round games.Round
	if len(req.State) > 0 {
		sg, ok := g.(games.StatefulGame)
		if !ok {
			return nil, models.Validationf("%s takes no state", g.Info().Name)
		}
		round, err = sg.DecodeContinue(req.State.Raw(), req.Data.Raw())
		if errors.Is(err, games.ErrCashoutRequested) {
			return nil, models.Validationf("a cashout has no outcome to verify")
		}
		if err != nil && !errors.Is(err, models.ErrValidation) {
			return nil, models.Validationf("invalid state: %v", err)
		}
	} else {
		round, err = g.Decode(req.Data.Raw())
	}
	if err != nil {
		return nil, err
	}

	out, err := round.Resolve(fairness.NewStream(req.ServerSeed, req.ClientSeed, req.Nonce))
	if err != nil {
		return nil, models.Validationf("cannot resolve round: %v", err)
	}
	return &models.VerifyResult{
		ServerSeedHash: fairness.HashServerSeed(req.ServerSeed),
		Outcome:        out.Raw,
		Multiplier:     out.Multiplier,
		Credit:         out.Credit,
		Finished:       out.Finished,
		State:          out.State,
	}, nil
}
