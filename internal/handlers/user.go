package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

type UserHandler struct {
	gameEngine *services.GameEngine
	jwtService *services.JWTService
}

func NewUserHandler(gameEngine *services.GameEngine, jwtService *services.JWTService) *UserHandler {
	return &UserHandler{
		gameEngine: gameEngine,
		jwtService: jwtService,
	}
}

type issueTokenRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// IssueToken signs a token for any user id. It is only routed outside
// production.
func (h *UserHandler) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	token, claims, err := h.jwtService.IssueToken(req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"user_id":    claims.UserID,
		"expires_at": claims.ExpiresAt.Time,
	})
}

func (h *UserHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	coinID, err := strconv.ParseInt(c.DefaultQuery("coin_id", "1"), 10, 64)
	if err != nil {
		respondError(c, models.Validationf("invalid coin_id"))
		return
	}

	balance, err := h.gameEngine.Balance(c.Request.Context(), userID, coinID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance,
	})
}

func (h *UserHandler) GetSeeds(c *gin.Context) {
	userID := c.GetInt64("user_id")

	pair, err := h.gameEngine.Seeds(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"seeds":   pair,
	})
}

type rotateClientSeedRequest struct {
	Seed string `json:"seed"`
}

func (h *UserHandler) RotateClientSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req rotateClientSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rotation, err := h.gameEngine.RotateClientSeed(c.Request.Context(), userID, req.Seed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"rotation": rotation,
	})
}

func (h *UserHandler) RotateServerSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	rotation, err := h.gameEngine.RotateServerSeed(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"rotation": rotation,
	})
}
