package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	PostgresDSN string

	JWTSecret string
	JWTTTL    time.Duration

	GamesConfig string

	LedgerTimeout      time.Duration
	SessionTTL         time.Duration
	SweepInterval      time.Duration
	MaxAutoBets        int
	StartingBalance    decimal.Decimal
	AutoProvisionSeeds bool
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		RedisURL:    os.Getenv("REDIS_URL"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		PostgresDSN: os.Getenv("PG_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		GamesConfig: os.Getenv("GAMES_CONFIG"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MaxAutoBets, err = getInt("MAX_AUTO_BETS", 100); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LedgerTimeout, err = getDuration("LEDGER_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.AutoProvisionSeeds, err = getBool("AUTO_PROVISION_SEEDS", true); err != nil {
		return nil, err
	}

	balance := getEnv("STARTING_BALANCE", "1000")
	if cfg.StartingBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE %q: %w", balance, err)
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "development-secret"
	}
	if cfg.MaxAutoBets < 1 {
		return nil, fmt.Errorf("MAX_AUTO_BETS must be at least 1")
	}
	if cfg.LedgerTimeout <= 0 {
		return nil, fmt.Errorf("LEDGER_TIMEOUT must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
