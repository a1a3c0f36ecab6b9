// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	Ledger LedgerConfig

	NewsFeedURL      string
	GracePeriod      time.Duration
	MinStake         float64
	ChallengeSeconds int
	RingPollInterval time.Duration
}

// LedgerConfig holds credentials and endpoints for the schedule gateway.
// The operator key is the administrative credential: it authorizes both the
// creation of a scheduled transfer and its cancellation.
type LedgerConfig struct {
	GatewayURL  string
	OperatorID  string
	OperatorKey string
	SinkAccount string
	Timeout     time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	graceMinutes := getEnvInt("GRACE_PERIOD_MINUTES", 15)
	if graceMinutes <= 0 {
		graceMinutes = 15
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/wakefi.db"),
		Ledger: LedgerConfig{
			GatewayURL:  getEnv("LEDGER_GATEWAY_URL", "http://localhost:7546"),
			OperatorID:  getEnv("LEDGER_OPERATOR_ID", ""),
			OperatorKey: getEnv("LEDGER_OPERATOR_KEY", ""),
			SinkAccount: getEnv("LEDGER_SINK_ACCOUNT", "0.0.98"),
			Timeout:     time.Duration(getEnvInt("LEDGER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		NewsFeedURL:      getEnv("NEWS_FEED_URL", "https://min-api.cryptocompare.com/data/v2/news/?lang=EN"),
		GracePeriod:      time.Duration(graceMinutes) * time.Minute,
		MinStake:         getEnvFloat("MIN_STAKE", 0.5),
		ChallengeSeconds: getEnvInt("CHALLENGE_SECONDS", 30),
		RingPollInterval: time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Ledger.GatewayURL == "" {
		return fmt.Errorf("LEDGER_GATEWAY_URL cannot be empty")
	}
	if c.Ledger.SinkAccount == "" {
		return fmt.Errorf("LEDGER_SINK_ACCOUNT cannot be empty")
	}
	if c.MinStake <= 0 {
		return fmt.Errorf("MIN_STAKE must be > 0")
	}
	if c.ChallengeSeconds <= 0 {
		return fmt.Errorf("CHALLENGE_SECONDS must be > 0")
	}
	return nil
}

// HasOperator returns true when ledger credentials are configured. Credential
// absence is a configuration error surfaced before any call attempt.
func (c *Config) HasOperator() bool {
	return c.Ledger.OperatorID != "" && c.Ledger.OperatorKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
