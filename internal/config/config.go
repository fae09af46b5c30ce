// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/monitor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Game registry — the fixed set of Speetto products we track
// --------------------------------------------------------------------------

type GameConfig struct {
	ID          string
	Label       string // display label as it appears on the source page
	FirstPrize  string
	SecondPrize string
	ThirdPrize  string
}

var GameRegistry = map[string]GameConfig{
	"speetto1000": {ID: "speetto1000", Label: "스피또1000", FirstPrize: "5억원", SecondPrize: "2천만원", ThirdPrize: "1만원"},
	"speetto2000": {ID: "speetto2000", Label: "스피또2000", FirstPrize: "10억원", SecondPrize: "1억원", ThirdPrize: "1천만원"},
}

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	GamesTable           = "games"
	ReadingsTable        = "monitoring_data"
	NotificationLogTable = "notification_logs"
	RecipientsTable      = "notification_settings"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Source page
	SourceURL    string
	FetchTimeout time.Duration

	// SOLAPI credentials. Empty keys disable SMS delivery; readings are
	// still fetched and persisted.
	SolapiAPIKey    string
	SolapiSecretKey string

	// Alerting
	SenderPhone    string
	RecipientPhone string
	SendTimeout    time.Duration

	// Monitoring schedule
	MonitorInterval time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SourceURL:    envOr("SPEETTO_SOURCE_URL", "https://dhlottery.co.kr/common.do?method=gameInfoAll&wiselog=M_A_1_7"),
		FetchTimeout: time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,

		SolapiAPIKey:    envOr("SOLAPI_API_KEY", ""),
		SolapiSecretKey: envOr("SOLAPI_SECRET_KEY", ""),

		SenderPhone:    envOr("ALERT_SENDER_PHONE", "01012345678"),
		RecipientPhone: envOr("ALERT_RECIPIENT_PHONE", "01067790104"),
		SendTimeout:    time.Duration(envInt("SEND_TIMEOUT_SECONDS", 10)) * time.Second,

		MonitorInterval: time.Duration(envInt("MONITOR_INTERVAL_MINUTES", 30)) * time.Minute,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SMSConfigured reports whether both SOLAPI credentials are present.
func (c *Config) SMSConfigured() bool {
	return c.SolapiAPIKey != "" && c.SolapiSecretKey != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
