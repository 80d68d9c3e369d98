package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/middleware"
	"fairplay-backend/internal/services"
)

type denyAll struct{}

func (denyAll) Allow(context.Context, int64, string, int, time.Duration) (bool, error) {
	return false, nil
}

func newRouter(jwtService *services.JWTService, limiter services.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService), middleware.RateLimitMiddleware(limiter))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})
	api.POST("/games/bet", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "secret", JWTTTL: time.Hour})
	token, _, err := jwtService.IssueToken(5)
	if err != nil {
		t.Fatal(err)
	}
	r := newRouter(jwtService, services.NewMemoryRateLimiter())

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"bad scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "secret", JWTTTL: time.Hour})
	token, _, _ := jwtService.IssueToken(5)
	r := newRouter(jwtService, denyAll{})

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := do(http.MethodPost, "/api/games/bet"); got != http.StatusTooManyRequests {
		t.Errorf("Limited route should answer 429, got %d", got)
	}
	if got := do(http.MethodGet, "/api/me"); got != http.StatusOK {
		t.Errorf("Unlisted route should pass, got %d", got)
	}
}
