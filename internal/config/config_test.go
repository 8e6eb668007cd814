package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}

	if cfg.Tracker.AlertThresholdPercent != 10 {
		t.Errorf("expected default threshold 10, got %v", cfg.Tracker.AlertThresholdPercent)
	}
	if cfg.Tracker.RetentionDays != 90 {
		t.Errorf("expected default retention 90, got %d", cfg.Tracker.RetentionDays)
	}
	if cfg.Tracker.MinPlausibleFare != 1000 || cfg.Tracker.MaxPlausibleFare != 50000 {
		t.Errorf("unexpected plausibility defaults: %d–%d",
			cfg.Tracker.MinPlausibleFare, cfg.Tracker.MaxPlausibleFare)
	}
	if cfg.Schedule.CheckCron == "" || cfg.Schedule.HealthCron == "" || cfg.Schedule.PruneCron == "" {
		t.Error("cron defaults missing")
	}
	if cfg.Database.SQLitePath == "" {
		t.Error("sqlite path default missing")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  bot_token: "from-yaml"
  chat_id: "123"
source:
  url: "https://example.com/calendar"
tracker:
  retention_days: 30
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TARGET_URL", "https://override.example.com")
	t.Setenv("ALERT_THRESHOLD", "15.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("env must override yaml, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Source.URL != "https://override.example.com" {
		t.Errorf("TARGET_URL override missing, got %q", cfg.Source.URL)
	}
	if cfg.Tracker.AlertThresholdPercent != 15.5 {
		t.Errorf("ALERT_THRESHOLD override missing, got %v", cfg.Tracker.AlertThresholdPercent)
	}
	if cfg.Tracker.RetentionDays != 30 {
		t.Errorf("yaml retention not applied, got %d", cfg.Tracker.RetentionDays)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"token without chat id", func(c *Config) { c.Telegram.BotToken = "x" }},
		{"negative threshold", func(c *Config) { c.Tracker.AlertThresholdPercent = -1 }},
		{"zero retention", func(c *Config) { c.Tracker.RetentionDays = -5 }},
		{"inverted plausible range", func(c *Config) { c.Tracker.MaxPlausibleFare = 500 }},
		{"bad month", func(c *Config) { c.Source.Month = "June 2025" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
