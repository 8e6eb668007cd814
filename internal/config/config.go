package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Everything the components
// need is threaded in from here; no package keeps global settings.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Source struct {
		URL        string `yaml:"url"`
		Month      string `yaml:"month"` // YYYY-MM, empty = current month
		RouteLabel string `yaml:"route_label"`
	} `yaml:"source"`
	Tracker struct {
		AlertThresholdPercent float64 `yaml:"alert_threshold_percent"`
		RetentionDays         int     `yaml:"retention_days"`
		MinPlausibleFare      int     `yaml:"min_plausible_fare"`
		MaxPlausibleFare      int     `yaml:"max_plausible_fare"`
	} `yaml:"tracker"`
	Schedule struct {
		CheckCron  string `yaml:"check_cron"`
		HealthCron string `yaml:"health_cron"`
		PruneCron  string `yaml:"prune_cron"`
	} `yaml:"schedule"`
	Health struct {
		StateFile string `yaml:"state_file"`
		MaxErrors int    `yaml:"max_errors"`
	} `yaml:"health"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A .env file is honored first: /secrets/.env when deployed, ./.env locally.
func Load(path string) (*Config, error) {
	if _, err := os.Stat("/secrets/.env"); err == nil {
		_ = godotenv.Load("/secrets/.env")
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("TARGET_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_CHECK"); v != "" {
		cfg.Schedule.CheckCron = v
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		var threshold float64
		if _, err := fmt.Sscanf(v, "%f", &threshold); err == nil {
			cfg.Tracker.AlertThresholdPercent = threshold
		}
	}

	// Defaults
	if cfg.Source.RouteLabel == "" {
		cfg.Source.RouteLabel = "Bus Nagaoka → Shinjuku"
	}
	if cfg.Tracker.AlertThresholdPercent == 0 {
		cfg.Tracker.AlertThresholdPercent = 10
	}
	if cfg.Tracker.RetentionDays == 0 {
		cfg.Tracker.RetentionDays = 90
	}
	if cfg.Tracker.MinPlausibleFare == 0 {
		cfg.Tracker.MinPlausibleFare = 1000
	}
	if cfg.Tracker.MaxPlausibleFare == 0 {
		cfg.Tracker.MaxPlausibleFare = 50000
	}
	if cfg.Schedule.CheckCron == "" {
		cfg.Schedule.CheckCron = "0 0 8,14,20 * * *"
	}
	if cfg.Schedule.HealthCron == "" {
		cfg.Schedule.HealthCron = "0 0 9 * * *"
	}
	if cfg.Schedule.PruneCron == "" {
		cfg.Schedule.PruneCron = "0 0 3 * * 1"
	}
	if cfg.Health.StateFile == "" {
		cfg.Health.StateFile = "data/health_state.json"
	}
	if cfg.Health.MaxErrors == 0 {
		cfg.Health.MaxErrors = 5
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/bus_prices.db"
	}

	return cfg, nil
}

// Validate checks field consistency. Telegram credentials are optional as
// a pair; without them the bot runs with the noop notifier.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Tracker.AlertThresholdPercent < 0 {
		return fmt.Errorf("tracker.alert_threshold_percent must not be negative")
	}
	if c.Tracker.RetentionDays <= 0 {
		return fmt.Errorf("tracker.retention_days must be positive")
	}
	if c.Tracker.MaxPlausibleFare <= c.Tracker.MinPlausibleFare {
		return fmt.Errorf("tracker.max_plausible_fare must exceed min_plausible_fare")
	}
	if c.Source.Month != "" {
		if _, err := time.Parse("2006-01", c.Source.Month); err != nil {
			return fmt.Errorf("source.month must be YYYY-MM: %w", err)
		}
	}
	if c.Health.MaxErrors <= 0 {
		return fmt.Errorf("health.max_errors must be positive")
	}
	return nil
}
