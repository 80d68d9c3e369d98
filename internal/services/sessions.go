package services

import (
	"context"
	"sync"
	"sync/atomic"

	"fairplay-backend/internal/models"
)

// SessionStore keeps sessions that are awaiting continuation so they survive
// a restart.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.BetSession) error
	DeleteSession(ctx context.Context, session *models.BetSession) error
	LoadOpenSessions(ctx context.Context) ([]*models.BetSession, error)
}

// Archiver records sessions once they are settled or expired.
type Archiver interface {
	ArchiveSession(ctx context.Context, session *models.BetSession) error
}

type slotKey struct {
	userID int64
	gameID int64
}

// slot serialises every operation on one (user, game) pair. session is only
// touched with mu held; snapshot is what readers see without waiting.
type slot struct {
	key      slotKey
	mu       sync.Mutex
	session  *models.BetSession
	snapshot atomic.Pointer[models.BetSession]
}

func (s *slot) publish() {
	if s.session == nil {
		s.snapshot.Store(nil)
		return
	}
	s.snapshot.Store(s.session.Clone())
}

type sessionTable struct {
	mu    sync.Mutex
	slots map[slotKey]*slot
	open  map[int64]int
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		slots: make(map[slotKey]*slot),
		open:  make(map[int64]int),
	}
}

func (t *sessionTable) get(userID, gameID int64) *slot {
	k := slotKey{userID, gameID}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[k]
	if !ok {
		s = &slot{key: k}
		t.slots[k] = s
	}
	return s
}

func (t *sessionTable) lookup(userID, gameID int64) *slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[slotKey{userID, gameID}]
}

// acquire locks the slot without waiting.
func (t *sessionTable) acquire(userID, gameID int64) (*slot, error) {
	s := t.get(userID, gameID)
	if !s.mu.TryLock() {
		return nil, models.ErrSessionConflict
	}
	return s, nil
}

func (t *sessionTable) opened(userID int64) {
	t.mu.Lock()
	t.open[userID]++
	t.mu.Unlock()
}

func (t *sessionTable) closed(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open[userID] <= 1 {
		delete(t.open, userID)
		return
	}
	t.open[userID]--
}

func (t *sessionTable) hasOpen(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open[userID] > 0
}

func (t *sessionTable) all() []*slot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*slot, 0, len(t.slots))
	for _, s := range t.slots {
		out = append(out, s)
	}
	return out
}

func actionsFor(state models.SessionState) []models.Action {
	switch state {
	case models.SessionAwaitingContinuation:
		return []models.Action{models.ActionContinue, models.ActionCashout}
	case models.SessionActive:
		return []models.Action{}
	default:
		return []models.Action{models.ActionMakeBet}
	}
}
