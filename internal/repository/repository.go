package repository

import (
	"context"
	"errors"
	"time"

	"fairplay-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type HistoryFilter struct {
	GameID int64
	Before time.Time
	Limit  uint64
}

type SessionRepository interface {
	ArchiveSession(ctx context.Context, session *models.BetSession) error
	History(ctx context.Context, userID int64, filter HistoryFilter) ([]*models.BetSession, error)
	GetSession(ctx context.Context, userID int64, sessionID string) (*models.BetSession, error)
}
