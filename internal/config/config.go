package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rating backend names accepted by RATINGS_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendHTTP     = "http"
	BackendNone     = "none"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port             string
	ReadTimeoutSecs  int
	WriteTimeoutSecs int
	IdleTimeoutSecs  int

	RatingsBackend   string
	RatingsTimeoutMS int
	RatingsAPIKey    string
	RatingsURL       string

	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	RateLimitRPS   int
	RateLimitBurst int
	MenuFile       string

	ChatProvider  string
	ChatURL       string
	ChatTimeoutMS int
	GeminiAPIKey  string
	GeminiModel   string
	BedrockRegion string
	BedrockModel  string
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		ReadTimeoutSecs:  getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs: getEnvInt("SERVER_WRITE_TIMEOUT", 0),
		IdleTimeoutSecs:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),

		RatingsBackend:   strings.ToLower(getEnv("RATINGS_BACKEND", BackendMemory)),
		RatingsTimeoutMS: getEnvInt("RATINGS_TIMEOUT_MS", 4000),
		RatingsAPIKey:    os.Getenv("RATINGS_API_KEY"),
		RatingsURL:       os.Getenv("RATINGS_URL"),

		DBURL:             os.Getenv("DB_URL"),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisKey:      getEnv("REDIS_KEY", "bitebuzz:feedback_votes"),

		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		MenuFile:       os.Getenv("MENU_FILE"),

		ChatProvider:  strings.ToLower(getEnv("CHAT_PROVIDER", "none")),
		ChatURL:       os.Getenv("CHAT_URL"),
		ChatTimeoutMS: getEnvInt("CHAT_TIMEOUT_MS", 4000),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		BedrockRegion: os.Getenv("BEDROCK_REGION"),
		BedrockModel:  os.Getenv("BEDROCK_MODEL"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (cfg Config) Validate() error {
	if cfg.ReadTimeoutSecs < 0 || cfg.WriteTimeoutSecs < 0 || cfg.IdleTimeoutSecs < 0 {
		return fmt.Errorf("SERVER_*_TIMEOUT values must be non-negative")
	}
	if cfg.RatingsTimeoutMS <= 0 {
		return fmt.Errorf("RATINGS_TIMEOUT_MS must be positive")
	}

	switch cfg.RatingsBackend {
	case BackendMemory, BackendNone:
	case BackendPostgres:
		if cfg.DBURL == "" {
			return fmt.Errorf("DB_URL is required when RATINGS_BACKEND=postgres")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATINGS_BACKEND=redis")
		}
		if cfg.RedisDB < 0 {
			return fmt.Errorf("REDIS_DB must be non-negative")
		}
	case BackendHTTP:
		if cfg.RatingsURL == "" {
			return fmt.Errorf("RATINGS_URL is required when RATINGS_BACKEND=http")
		}
	default:
		return fmt.Errorf("RATINGS_BACKEND %q is not one of memory, postgres, redis, http, none", cfg.RatingsBackend)
	}

	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	if cfg.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	if cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive")
	}

	if cfg.ChatTimeoutMS <= 0 {
		return fmt.Errorf("CHAT_TIMEOUT_MS must be positive")
	}
	switch cfg.ChatProvider {
	case "none":
	case "upstream":
		if cfg.ChatURL == "" {
			return fmt.Errorf("CHAT_URL is required when CHAT_PROVIDER=upstream")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when CHAT_PROVIDER=gemini")
		}
	case "bedrock":
	default:
		return fmt.Errorf("CHAT_PROVIDER %q is not one of none, upstream, gemini, bedrock", cfg.ChatProvider)
	}
	return nil
}

// BackendConfigured reports whether ratings go to a backend. When false the
// feedback engine runs in local-only demo mode.
func (cfg Config) BackendConfigured() bool {
	return cfg.RatingsBackend != BackendNone
}

// RatingsTimeout is the per-request budget for backend calls.
func (cfg Config) RatingsTimeout() time.Duration {
	return time.Duration(cfg.RatingsTimeoutMS) * time.Millisecond
}

// ChatTimeout is the per-request budget for chat providers.
func (cfg Config) ChatTimeout() time.Duration {
	return time.Duration(cfg.ChatTimeoutMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
