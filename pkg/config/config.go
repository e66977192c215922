package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Chat      ChatConfig      `json:"chat"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Matcher   MatcherConfig   `json:"matcher"`
	Channels  ChannelsConfig  `json:"channels"`
	Sweep     SweepConfig     `json:"sweep"`
	Log       LogConfig       `json:"log"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"LUMIE_GATEWAY_HOST"`
	Port int    `json:"port" env:"LUMIE_GATEWAY_PORT"`
}

type ChatConfig struct {
	TrainingDir      string `json:"training_dir" env:"LUMIE_CHAT_TRAINING_DIR"`
	MaxRecentAnswers int    `json:"max_recent_answers" env:"LUMIE_CHAT_MAX_RECENT_ANSWERS"`
	SessionTTLMin    int    `json:"session_ttl_minutes" env:"LUMIE_CHAT_SESSION_TTL_MINUTES"`
	ContextTTLMin    int    `json:"context_ttl_minutes" env:"LUMIE_CHAT_CONTEXT_TTL_MINUTES"`
}

type RateLimitConfig struct {
	WindowMin   int `json:"window_minutes" env:"LUMIE_RATE_LIMIT_WINDOW_MINUTES"`
	MaxRequests int `json:"max_requests" env:"LUMIE_RATE_LIMIT_MAX_REQUESTS"`
}

type MatcherConfig struct {
	FuzzyScoreLimit float64 `json:"fuzzy_score_limit" env:"LUMIE_MATCHER_FUZZY_SCORE_LIMIT"`
	ScopedMargin    float64 `json:"scoped_margin" env:"LUMIE_MATCHER_SCOPED_MARGIN"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Enabled   bool     `json:"enabled" env:"LUMIE_CHANNELS_DISCORD_ENABLED"`
	Token     string   `json:"token" env:"LUMIE_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"LUMIE_CHANNELS_DISCORD_ALLOW_FROM"`
}

type SweepConfig struct {
	// Cron schedules the cleanup of expired sessions and closed
	// rate-limit windows. Expiry is already checked lazily at access
	// time; the sweep only bounds memory for idle keys.
	Cron string `json:"cron" env:"LUMIE_SWEEP_CRON"`
}

type LogConfig struct {
	Level string `json:"level" env:"LUMIE_LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Chat: ChatConfig{
			TrainingDir:      "./trainingdata",
			MaxRecentAnswers: 5,
			SessionTTLMin:    60,
			ContextTTLMin:    5,
		},
		RateLimit: RateLimitConfig{
			WindowMin:   10,
			MaxRequests: 2,
		},
		Matcher: MatcherConfig{
			FuzzyScoreLimit: 0.4,
			ScopedMargin:    0.05,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Enabled:   false,
				Token:     "",
				AllowFrom: []string{},
			},
		},
		Sweep: SweepConfig{
			Cron: "*/10 * * * *",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON config at path, then applies LUMIE_* env
// overrides. A missing file is not an error; defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be in 1..65535, got %d", c.Gateway.Port)
	}
	if c.Chat.TrainingDir == "" {
		return fmt.Errorf("chat.training_dir is required")
	}
	if c.Chat.MaxRecentAnswers <= 0 {
		return fmt.Errorf("chat.max_recent_answers must be > 0")
	}
	if c.Chat.SessionTTLMin <= 0 {
		return fmt.Errorf("chat.session_ttl_minutes must be > 0")
	}
	if c.Chat.ContextTTLMin <= 0 || c.Chat.ContextTTLMin > c.Chat.SessionTTLMin {
		return fmt.Errorf("chat.context_ttl_minutes must be > 0 and <= session TTL")
	}
	if c.RateLimit.WindowMin <= 0 {
		return fmt.Errorf("rate_limit.window_minutes must be > 0")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be > 0")
	}
	if c.Matcher.FuzzyScoreLimit < 0 || c.Matcher.FuzzyScoreLimit > 1 {
		return fmt.Errorf("matcher.fuzzy_score_limit must be in [0,1]")
	}
	if c.Matcher.ScopedMargin < 0 || c.Matcher.ScopedMargin > 1 {
		return fmt.Errorf("matcher.scoped_margin must be in [0,1]")
	}
	if c.Channels.Discord.Enabled && c.Channels.Discord.Token == "" {
		return fmt.Errorf("channels.discord.token is required when discord is enabled")
	}
	return nil
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Chat.SessionTTLMin) * time.Minute
}

func (c *Config) ContextTTL() time.Duration {
	return time.Duration(c.Chat.ContextTTLMin) * time.Minute
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMin) * time.Minute
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Gateway.Host, c.Gateway.Port)
}
