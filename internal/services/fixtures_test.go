package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

const (
	fixedID  = 1
	ladderID = 2
	coin     = 1
	user     = 42
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedGame pays the credit given in its data, whatever the stream says.
type fixedGame struct{ id int64 }

func (g fixedGame) Info() models.GameInfo {
	return models.GameInfo{ID: g.id, Name: "fixed", Variant: "fixed"}
}

func (g fixedGame) Decode(data json.RawMessage) (games.Round, error) {
	var d struct {
		Credit string `json:"credit"`
	}
	if err := json.Unmarshal(data, &d); err != nil || d.Credit == "" {
		return nil, models.Validationf("credit is required")
	}
	c, err := decimal.NewFromString(d.Credit)
	if err != nil {
		return nil, models.Validationf("bad credit")
	}
	return fixedRound{credit: c}, nil
}

type fixedRound struct{ credit decimal.Decimal }

func (r fixedRound) Resolve(s *fairness.Stream) (games.Outcome, error) {
	raw, _ := json.Marshal(map[string]any{"nonce": s.Nonce(), "roll": s.Uint64()})
	return games.Outcome{Raw: raw, Multiplier: r.credit, Credit: r.credit, Finished: true}, nil
}

// ladderGame climbs one step per round and never loses. Cashing out pays
// the multiplier of the current step; the last step pays automatically.
type ladderGame struct {
	id    int64
	steps []decimal.Decimal
}

type ladderState struct {
	Step int `json:"step"`
}

func (g ladderGame) Info() models.GameInfo {
	return models.GameInfo{ID: g.id, Name: "ladder", Variant: "ladder", Stateful: true}
}

func (g ladderGame) Decode(json.RawMessage) (games.Round, error) {
	return ladderRound{game: g, step: 1}, nil
}

func (g ladderGame) DecodeContinue(state, data json.RawMessage) (games.Round, error) {
	var st ladderState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, err
	}
	var d struct {
		Cashout bool `json:"cashout"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, models.Validationf("bad data")
	}
	if d.Cashout {
		return nil, games.ErrCashoutRequested
	}
	return ladderRound{game: g, step: st.Step + 1}, nil
}

func (g ladderGame) Cashout(state json.RawMessage) (decimal.Decimal, error) {
	var st ladderState
	if err := json.Unmarshal(state, &st); err != nil {
		return decimal.Zero, err
	}
	return g.steps[st.Step-1], nil
}

func (g ladderGame) Forfeit(state json.RawMessage) decimal.Decimal {
	m, _ := g.Cashout(state)
	return m
}

type ladderRound struct {
	game ladderGame
	step int
}

func (r ladderRound) Resolve(s *fairness.Stream) (games.Outcome, error) {
	st, _ := json.Marshal(ladderState{Step: r.step})
	raw, _ := json.Marshal(map[string]any{"nonce": s.Nonce(), "step": r.step})
	mult := r.game.steps[r.step-1]
	out := games.Outcome{Raw: raw, Multiplier: mult, Credit: decimal.Zero, State: st}
	if r.step == len(r.game.steps) {
		out.Finished = true
		out.Credit = mult
	}
	return out, nil
}

type env struct {
	engine *services.GameEngine
	ledger *services.MemoryLedger
	seeds  *services.SeedLedger
}

func newEnv(t *testing.T, wrap func(services.Ledger) services.Ledger, opts ...services.Option) *env {
	t.Helper()

	reg := games.NewRegistry()
	for _, g := range []games.Game{
		fixedGame{id: fixedID},
		ladderGame{id: ladderID, steps: []decimal.Decimal{dec("1.0313"), dec("1.2"), dec("1.4786")}},
	} {
		if err := reg.Register(g); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	mem := services.NewMemoryLedger(dec("100"))
	var ledger services.Ledger = mem
	if wrap != nil {
		ledger = wrap(mem)
	}
	seeds := services.NewSeedLedger(services.NewMemorySeedStore(), true)
	cfg := services.EngineConfig{LedgerTimeout: time.Second, SessionTTL: time.Minute, MaxAutoBets: 100}

	return &env{
		engine: services.NewGameEngine(cfg, reg, seeds, ledger, opts...),
		ledger: mem,
		seeds:  seeds,
	}
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := e.ledger.Balance(context.Background(), user, coin)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	return b
}

func bet(gameID int64, amount, credit string, n int) *models.MakeBetRequest {
	return &models.MakeBetRequest{
		GameID:   gameID,
		CoinID:   coin,
		Amount:   dec(amount),
		Data:     models.GameData(`{"credit":"` + credit + `"}`),
		NumGames: n,
	}
}

// flakyLedger fails the next n settlements by waiting out their deadline.
type flakyLedger struct {
	services.Ledger
	mu    sync.Mutex
	fails int
}

func (l *flakyLedger) failNext(n int) {
	l.mu.Lock()
	l.fails = n
	l.mu.Unlock()
}

func (l *flakyLedger) Settle(ctx context.Context, e models.LedgerEntry) (decimal.Decimal, error) {
	l.mu.Lock()
	fail := l.fails > 0
	if fail {
		l.fails--
	}
	l.mu.Unlock()

	if fail {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}
	return l.Ledger.Settle(ctx, e)
}

// gateLedger holds every settlement until release is closed.
type gateLedger struct {
	services.Ledger
	entered chan struct{}
	release chan struct{}
}

func (l *gateLedger) Settle(ctx context.Context, e models.LedgerEntry) (decimal.Decimal, error) {
	select {
	case l.entered <- struct{}{}:
	default:
	}
	select {
	case <-l.release:
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
	return l.Ledger.Settle(ctx, e)
}

// hookLedger runs after once the first settlement succeeds.
type hookLedger struct {
	services.Ledger
	once  sync.Once
	after func()
}

func (l *hookLedger) Settle(ctx context.Context, e models.LedgerEntry) (decimal.Decimal, error) {
	b, err := l.Ledger.Settle(ctx, e)
	if err == nil {
		l.once.Do(l.after)
	}
	return b, err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.BetSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*models.BetSession)}
}

func (s *memoryStore) SaveSession(_ context.Context, b *models.BetSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[b.ID] = b.Clone()
	return nil
}

func (s *memoryStore) DeleteSession(_ context.Context, b *models.BetSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, b.ID)
	return nil
}

func (s *memoryStore) LoadOpenSessions(context.Context) ([]*models.BetSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.BetSession
	for _, b := range s.sessions {
		out = append(out, b.Clone())
	}
	return out, nil
}

type recordingArchive struct {
	mu       sync.Mutex
	sessions []*models.BetSession
}

func (a *recordingArchive) ArchiveSession(_ context.Context, s *models.BetSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, s)
	return nil
}

// saveFailingStore fails the next n saves that advance a nonce.
type saveFailingStore struct {
	*services.MemorySeedStore
	mu    sync.Mutex
	fails int
}

func (s *saveFailingStore) SaveSeeds(ctx context.Context, userID int64, pair *models.SeedPair) error {
	s.mu.Lock()
	fail := s.fails > 0 && pair.Nonce > 0
	if fail {
		s.fails--
	}
	s.mu.Unlock()

	if fail {
		return errors.New("redis: i/o timeout")
	}
	return s.MemorySeedStore.SaveSeeds(ctx, userID, pair)
}
