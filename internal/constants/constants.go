package constants

import "time"

const (
	RankingCacheTTL  = 30 * time.Second
	SeasonCacheTTL   = 1 * time.Hour
	BaselineCacheTTL = 24 * time.Hour
)

const (
	ExternalAPITimeout  = 10 * time.Second
	UpstreamMaxAttempts = 3
	RetryBaseDelay      = 250 * time.Millisecond
	DatabaseTimeout     = 5 * time.Second
	RequestTimeout      = 30 * time.Second
)

const (
	OnlineThresholdMinutes = 30
	RecentThresholdHours   = 24
	DefaultTimeZone        = "America/New_York"
)

const (
	TeamChunkSize    = 40
	FetchConcurrency = 4
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
