package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/repository"
	"fairplay-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	history    repository.SessionRepository
}

// NewGameHandler builds the game routes. history may be nil when no archive
// is configured; the history routes then answer 503.
func NewGameHandler(gameEngine *services.GameEngine, history repository.SessionRepository) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		history:    history,
	}
}

func (h *GameHandler) ListGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   h.gameEngine.Games(),
	})
}

func (h *GameHandler) MakeBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MakeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.gameEngine.MakeBet(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) ContinueGame(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.ContinueGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.gameEngine.ContinueGame(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) Cashout(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var ref models.GameRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.gameEngine.Cashout(c.Request.Context(), userID, &ref)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) GetState(c *gin.Context) {
	userID := c.GetInt64("user_id")

	gameID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.Validationf("invalid game id"))
		return
	}
	var coinID int64
	if v := c.Query("coin_id"); v != "" {
		if coinID, err = strconv.ParseInt(v, 10, 64); err != nil {
			respondError(c, models.Validationf("invalid coin_id"))
			return
		}
	}

	snapshot, err := h.gameEngine.GetState(userID, &models.GameRef{GameID: gameID, CoinID: coinID})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   snapshot,
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History is not available"})
		return
	}
	userID := c.GetInt64("user_id")

	var filter repository.HistoryFilter
	if v := c.Query("game_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(c, models.Validationf("invalid game_id"))
			return
		}
		filter.GameID = id
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(c, models.Validationf("invalid limit"))
			return
		}
		filter.Limit = limit
	}
	if v := c.Query("before"); v != "" {
		before, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, models.Validationf("before must be an RFC 3339 timestamp"))
			return
		}
		filter.Before = before
	}

	sessions, err := h.history.History(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
	})
}

func (h *GameHandler) GetSession(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History is not available"})
		return
	}
	userID := c.GetInt64("user_id")

	session, err := h.history.GetSession(c.Request.Context(), userID, c.Param("session_id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// Verify is public: it needs only revealed seeds.
func (h *GameHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.gameEngine.Verify(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}
