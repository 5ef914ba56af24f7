package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sc2-ladder-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	PulseBaseURL string
	DBPath       string
	ServerPort   string
	LogLevel     string

	OnlineThreshold time.Duration
	RecentThreshold time.Duration
	Location        *time.Location

	RankingCacheTTL  time.Duration
	SeasonCacheTTL   time.Duration
	BaselineCacheTTL time.Duration

	TeamChunkSize       int
	FetchConcurrency    int
	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		PulseBaseURL: getEnv("PULSE_BASE_URL", "https://sc2pulse.nephest.com/sc2/api"),
		DBPath:       getEnv("DB_PATH", "ladder.db"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		OnlineThreshold: time.Duration(getEnvInt("ONLINE_THRESHOLD_MINUTES", constants.OnlineThresholdMinutes)) * time.Minute,
		RecentThreshold: time.Duration(getEnvInt("RECENT_THRESHOLD_HOURS", constants.RecentThresholdHours)) * time.Hour,

		RankingCacheTTL:  getEnvDuration("RANKING_CACHE_TTL", constants.RankingCacheTTL),
		SeasonCacheTTL:   getEnvDuration("SEASON_CACHE_TTL", constants.SeasonCacheTTL),
		BaselineCacheTTL: getEnvDuration("BASELINE_CACHE_TTL", constants.BaselineCacheTTL),

		TeamChunkSize:       getEnvInt("TEAM_CHUNK_SIZE", constants.TeamChunkSize),
		FetchConcurrency:    getEnvInt("FETCH_CONCURRENCY", constants.FetchConcurrency),
		UpstreamTimeout:     getEnvDuration("UPSTREAM_TIMEOUT", constants.ExternalAPITimeout),
		UpstreamMaxAttempts: getEnvInt("UPSTREAM_MAX_ATTEMPTS", constants.UpstreamMaxAttempts),
	}

	tz := getEnv("TIME_ZONE", constants.DefaultTimeZone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if cfg.TeamChunkSize <= 0 {
		return nil, fmt.Errorf("TEAM_CHUNK_SIZE must be positive, got %d", cfg.TeamChunkSize)
	}
	if cfg.FetchConcurrency <= 0 {
		return nil, fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", cfg.FetchConcurrency)
	}

	logger.Info().
		Str("pulse_base_url", cfg.PulseBaseURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("time_zone", tz).
		Dur("ranking_cache_ttl", cfg.RankingCacheTTL).
		Dur("online_threshold", cfg.OnlineThreshold).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
