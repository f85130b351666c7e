// Package config provides configuration management for FAQDesk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the FAQDesk server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":7071").
	ServerAddr string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// KnowledgeDir is the directory of knowledge-base files concatenated
	// into the chat prompt.
	KnowledgeDir string

	// ExpertChannelID is the fixed channel escalation tickets are posted
	// into.
	ExpertChannelID string

	// BotID identifies the bot account on created conversations.
	BotID string

	// ServiceURL is the platform callback base URL used by the HTTP
	// connector for outbound conversation operations.
	ServiceURL string

	// LLM provider API keys.
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Slack front-end (optional -- Socket Mode).
	// SlackBotToken is the Bot User OAuth Token (xoxb-...).
	SlackBotToken string
	// SlackAppToken is the App-Level Token (xapp-...) required for Socket Mode.
	SlackAppToken string

	// Telegram front-end (optional -- long polling, no public URL needed).
	TelegramBotToken string

	// Retention is how long idle conversation state is kept before the
	// sweeper removes it. Default: 30 days.
	Retention time.Duration

	// SweepSchedule is the cron schedule for the retention sweeper.
	SweepSchedule string
}

// Load creates a Config from environment variables with sensible defaults.
func Load() (*Config, error) {
	dataDir := envOr("FAQDESK_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:       envOr("FAQDESK_ADDR", ":7071"),
		DataDir:          dataDir,
		DatabasePath:     filepath.Join(dataDir, "faqdesk.db"),
		KnowledgeDir:     envOr("FAQDESK_KNOWLEDGE_DIR", "data"),
		ExpertChannelID:  os.Getenv("FAQDESK_EXPERT_CHANNEL"),
		BotID:            os.Getenv("FAQDESK_BOT_ID"),
		ServiceURL:       os.Getenv("FAQDESK_SERVICE_URL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		SlackBotToken:    os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:    os.Getenv("SLACK_APP_TOKEN"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Retention:        time.Duration(envOrInt("FAQDESK_RETENTION_DAYS", 30)) * 24 * time.Hour,
		SweepSchedule:    envOr("FAQDESK_SWEEP_SCHEDULE", "@hourly"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ExpertChannelID == "" {
		return fmt.Errorf("FAQDESK_EXPERT_CHANNEL is required")
	}
	if c.AnthropicAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("at least one of ANTHROPIC_API_KEY or OPENAI_API_KEY is required")
	}
	return nil
}

// SlackEnabled returns true if Slack Socket Mode is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// TelegramEnabled returns true if the Telegram bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// ConnectorEnabled returns true if the HTTP connector callback is
// configured.
func (c *Config) ConnectorEnabled() bool {
	return c.ServiceURL != ""
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".faqdesk"
	}
	return filepath.Join(home, ".faqdesk")
}
