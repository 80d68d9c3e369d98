package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/services"
)

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)

		c.Next()
	}
}

type routeLimit struct {
	action string
	limit  int
}

// routeLimits maps route patterns to their per-minute budget. Routes that are
// not listed are not limited.
var routeLimits = map[string]routeLimit{
	"/api/games/bet":      {"bet", services.DefaultRateLimitBets},
	"/api/games/continue": {"continue", services.DefaultRateLimitContinue},
	"/api/games/cashout":  {"cashout", services.DefaultRateLimitCashout},
	"/api/seeds/client":   {"seeds", services.DefaultRateLimitSeeds},
	"/api/seeds/server":   {"seeds", services.DefaultRateLimitSeeds},
}

func RateLimitMiddleware(limiter services.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		rl, ok := routeLimits[c.FullPath()]
		if userID == 0 || !ok {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), userID, rl.action, rl.limit, time.Minute)
		if err != nil {
			log.Printf("Rate limit check failed for user %d: %v", userID, err)
		}
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": time.Minute.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
