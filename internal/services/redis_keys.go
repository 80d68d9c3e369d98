package services

import "time"

const (
	KeyWallet       = "wallet:%d"
	KeySettlement   = "settlement:%s"
	KeySeeds        = "seeds:%d"
	KeyBetSession   = "bet:session:%s"
	KeyOpenSessions = "bet:open_sessions"
	KeyRateLimit    = "ratelimit:%d:%s"

	TTLSettlement = 7 * 24 * time.Hour
	TTLBetSession = 7 * 24 * time.Hour

	// Requests per minute.
	DefaultRateLimitBets     = 120
	DefaultRateLimitContinue = 240
	DefaultRateLimitCashout  = 120
	DefaultRateLimitSeeds    = 20
)
