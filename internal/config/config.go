package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration. It is built once at process start
// and passed by pointer into every constructor.
type Config struct {
	Server    ServerConfig
	OpenClaw  OpenClawConfig
	Stores    StoreConfig
	Telegram  TelegramConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP front-door configuration.
type ServerConfig struct {
	Port         string `envconfig:"BRIDGE_PORT" default:"8787"`
	Host         string `envconfig:"BRIDGE_HOST" default:"127.0.0.1"`
	ClientKey    string `envconfig:"OPENCLAW_CLIENT_KEY"`
	MaxBodyBytes int64  `envconfig:"BRIDGE_MAX_BODY_BYTES" default:"65536"`
}

// OpenClawConfig holds upstream completion endpoint configuration.
type OpenClawConfig struct {
	BaseURL          string `envconfig:"OPENCLAW_BASE_URL"`
	Token            string `envconfig:"OPENCLAW_TOKEN"`
	SessionKey       string `envconfig:"OPENCLAW_SESSION_KEY" default:"agent:main:main"`
	AgentID          string `envconfig:"OPENCLAW_AGENT_ID"`
	Model            string `envconfig:"OPENCLAW_MODEL" default:"openclaw-chat"`
	TimeoutMS        int    `envconfig:"OPENCLAW_FORWARD_TIMEOUT_MS" default:"6000"`
	MaxRetries       int    `envconfig:"OPENCLAW_MAX_RETRIES" default:"1"`
	RetryBaseDelayMS int    `envconfig:"OPENCLAW_RETRY_BASE_DELAY_MS" default:"200"`
}

// Timeout returns the forward timeout as a duration.
func (c OpenClawConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RetryBaseDelay returns the backoff base as a duration.
func (c OpenClawConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// StoreConfig holds the append-only log file paths.
type StoreConfig struct {
	BookmarksPath  string `envconfig:"OPENCLAW_BOOKMARKS_PATH" default:"BOOKMARKS.md"`
	FlashcardsPath string `envconfig:"OPENCLAW_FLASHCARDS_PATH" default:"FLASHCARDS.md"`
}

// TelegramConfig holds the secondary notification channel configuration.
// The sink is disabled unless both BotToken and ChatID are set.
type TelegramConfig struct {
	BotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID    string `envconfig:"TELEGRAM_CHAT_ID"`
	TimeoutMS int    `envconfig:"TELEGRAM_TIMEOUT_MS" default:"8000"`
	APIBase   string `envconfig:"TELEGRAM_API_BASE" default:"https://api.telegram.org"`
}

// Timeout returns the notification timeout as a duration.
func (c TelegramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds front-door rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"25"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"50"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8787",
			Host:         "127.0.0.1",
			MaxBodyBytes: 64 * 1024,
		},
		OpenClaw: OpenClawConfig{
			SessionKey:       "agent:main:main",
			Model:            "openclaw-chat",
			TimeoutMS:        6000,
			MaxRetries:       1,
			RetryBaseDelayMS: 200,
		},
		Stores: StoreConfig{
			BookmarksPath:  "BOOKMARKS.md",
			FlashcardsPath: "FLASHCARDS.md",
		},
		Telegram: TelegramConfig{
			TimeoutMS: 8000,
			APIBase:   "https://api.telegram.org",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 25,
			Burst:             50,
			Enabled:           true,
		},
	}
}
