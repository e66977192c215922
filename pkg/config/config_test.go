package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_RateLimit(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RateLimit.MaxRequests != 2 {
		t.Errorf("MaxRequests = %d, want 2", cfg.RateLimit.MaxRequests)
	}
	if cfg.RateLimit.WindowMin != 10 {
		t.Errorf("WindowMin = %d, want 10", cfg.RateLimit.WindowMin)
	}
}

// TestDefaultConfig_Chat verifies session knobs have sane defaults.
func TestDefaultConfig_Chat(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chat.MaxRecentAnswers != 5 {
		t.Errorf("MaxRecentAnswers = %d, want 5", cfg.Chat.MaxRecentAnswers)
	}
	if cfg.Chat.SessionTTLMin != 60 {
		t.Errorf("SessionTTLMin = %d, want 60", cfg.Chat.SessionTTLMin)
	}
	if cfg.Chat.ContextTTLMin != 5 {
		t.Errorf("ContextTTLMin = %d, want 5", cfg.Chat.ContextTTLMin)
	}
	if cfg.Chat.TrainingDir == "" {
		t.Error("TrainingDir should not be empty")
	}
}

// TestDefaultConfig_Matcher verifies matcher thresholds.
func TestDefaultConfig_Matcher(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Matcher.FuzzyScoreLimit != 0.4 {
		t.Errorf("FuzzyScoreLimit = %v, want 0.4", cfg.Matcher.FuzzyScoreLimit)
	}
	if cfg.Matcher.ScopedMargin != 0.05 {
		t.Errorf("ScopedMargin = %v, want 0.05", cfg.Matcher.ScopedMargin)
	}
}

// TestDefaultConfig_Validates ensures the defaults pass their own checks.
func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.Gateway.Port != 3000 {
		t.Errorf("Port = %d, want default 3000", cfg.Gateway.Port)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"gateway": {"host": "127.0.0.1", "port": 8080}, "rate_limit": {"window_minutes": 1, "max_requests": 30}}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Gateway.Port)
	}
	if cfg.RateLimit.MaxRequests != 30 {
		t.Errorf("MaxRequests = %d, want 30", cfg.RateLimit.MaxRequests)
	}
	// Unset fields keep defaults.
	if cfg.Chat.MaxRecentAnswers != 5 {
		t.Errorf("MaxRecentAnswers = %d, want default 5", cfg.Chat.MaxRecentAnswers)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"gateway": {"port": 8080}}`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LUMIE_GATEWAY_PORT", "9090")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.Port != 9090 {
		t.Errorf("Port = %d, want env override 9090", cfg.Gateway.Port)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"zero port":             func(c *Config) { c.Gateway.Port = 0 },
		"empty training dir":    func(c *Config) { c.Chat.TrainingDir = "" },
		"zero recent answers":   func(c *Config) { c.Chat.MaxRecentAnswers = 0 },
		"context > session ttl": func(c *Config) { c.Chat.ContextTTLMin = 120 },
		"zero rate window":      func(c *Config) { c.RateLimit.WindowMin = 0 },
		"fuzzy limit > 1":       func(c *Config) { c.Matcher.FuzzyScoreLimit = 1.5 },
		"discord without token": func(c *Config) { c.Channels.Discord.Enabled = true },
	}

	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Gateway.Port = 4242

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if loaded.Gateway.Port != 4242 {
		t.Errorf("Port = %d, want 4242", loaded.Gateway.Port)
	}
}
