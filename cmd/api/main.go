package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/handlers"
	"fairplay-backend/internal/repository"
	"fairplay-backend/internal/repository/session_repo"
	"fairplay-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gamesCfg, err := config.LoadGames(cfg.GamesConfig)
	if err != nil {
		log.Fatalf("Failed to load games: %v", err)
	}
	registry, err := games.FromConfig(gamesCfg)
	if err != nil {
		log.Fatalf("Failed to build game catalogue: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	var (
		ledger    services.Ledger
		seedStore services.SeedStore
		limiter   services.RateLimiter
		opts      []services.Option
	)

	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisService.Close()

		ledger, seedStore, limiter = redisService, redisService, redisService
		opts = append(opts, services.WithSessionStore(redisService))
		log.Println("Using Redis for balances, seeds and sessions")
	} else {
		ledger = services.NewMemoryLedger(cfg.StartingBalance)
		seedStore = services.NewMemorySeedStore()
		limiter = services.NewMemoryRateLimiter()
		log.Println("REDIS_URL not set, using in-memory stores")
	}

	var history repository.SessionRepository
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()

		if err := session_repo.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("Failed to prepare archive schema: %v", err)
		}
		txManager, err := manager.New(trmpgx.NewDefaultFactory(pool))
		if err != nil {
			log.Fatalf("Failed to create tx manager: %v", err)
		}

		history = session_repo.NewSessionRepository(pool, txManager)
		opts = append(opts, services.WithArchiver(history))
		log.Println("Archiving settled sessions to Postgres")
	}

	broadcaster := services.NewBroadcaster(256)
	opts = append(opts, services.WithPublisher(broadcaster))

	seeds := services.NewSeedLedger(seedStore, cfg.AutoProvisionSeeds)
	gameEngine := services.NewGameEngine(services.EngineConfigFrom(cfg), registry, seeds, ledger, opts...)

	restored, err := gameEngine.Restore(ctx)
	if err != nil {
		log.Printf("Failed to restore open sessions: %v", err)
	} else if restored > 0 {
		log.Printf("Restored %d open sessions", restored)
	}

	go gameEngine.RunSweeper(ctx, cfg.SweepInterval)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, wsHandler := handlers.SetupRouter(handlers.RouterDeps{
		Config:      cfg,
		GameEngine:  gameEngine,
		JWTService:  services.NewJWTService(cfg),
		Limiter:     limiter,
		Broadcaster: broadcaster,
		History:     history,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	wsHandler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
