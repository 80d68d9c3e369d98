package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/middleware"
	"fairplay-backend/internal/repository"
	"fairplay-backend/internal/services"
)

type RouterDeps struct {
	Config      *config.Config
	GameEngine  *services.GameEngine
	JWTService  *services.JWTService
	Limiter     services.RateLimiter
	Broadcaster *services.Broadcaster
	History     repository.SessionRepository
}

// SetupRouter registers every route and returns the WebSocket handler so
// the caller can close its connections on shutdown.
func SetupRouter(d RouterDeps) (*gin.Engine, *WebSocketHandler) {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())

	gameHandler := NewGameHandler(d.GameEngine, d.History)
	userHandler := NewUserHandler(d.GameEngine, d.JWTService)
	wsHandler := NewWebSocketHandler(d.GameEngine, d.JWTService, d.Broadcaster, d.Limiter)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"connections": wsHandler.Connections(),
			"subscribers": d.Broadcaster.Subscribers(),
		})
	})

	public := router.Group("/api")
	{
		public.GET("/games", gameHandler.ListGames)
		public.POST("/verify", gameHandler.Verify)
		public.GET("/ws", wsHandler.HandleWebSocket)
		if !d.Config.Production() {
			public.POST("/auth/token", userHandler.IssueToken)
		}
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.JWTService), middleware.RateLimitMiddleware(d.Limiter))
	{
		protected.GET("/seeds", userHandler.GetSeeds)
		protected.POST("/seeds/client", userHandler.RotateClientSeed)
		protected.POST("/seeds/server", userHandler.RotateServerSeed)
		protected.GET("/balance", userHandler.GetBalance)

		protected.POST("/games/bet", gameHandler.MakeBet)
		protected.POST("/games/continue", gameHandler.ContinueGame)
		protected.POST("/games/cashout", gameHandler.Cashout)
		protected.GET("/games/:id/state", gameHandler.GetState)
		protected.GET("/games/history", gameHandler.GetHistory)
		protected.GET("/games/history/:session_id", gameHandler.GetSession)
	}

	return router, wsHandler
}
