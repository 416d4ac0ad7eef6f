package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
	Storage struct {
		Mode       string `yaml:"mode"` // "file" or "sqlite"
		FilePath   string `yaml:"file_path"`
		SQLitePath string `yaml:"sqlite_path"`
		Owner      string `yaml:"owner"` // per-identity namespace in sqlite mode
	} `yaml:"storage"`
	Quote struct {
		Source         string `yaml:"source"` // "yahoo" or "mock"
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"quote"`
	Refresh struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"refresh"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("STORAGE_MODE"); v != "" {
		cfg.Storage.Mode = v
	}
	if v := os.Getenv("WATCHLIST_FILE"); v != "" {
		cfg.Storage.FilePath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("WATCHLIST_OWNER"); v != "" {
		cfg.Storage.Owner = v
	}
	if v := os.Getenv("QUOTE_SOURCE"); v != "" {
		cfg.Quote.Source = v
	}
	if v := os.Getenv("QUOTE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quote.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Refresh.Cron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8787"
	}
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = "file"
	}
	if cfg.Storage.FilePath == "" {
		cfg.Storage.FilePath = "data/watchlist.json"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/watchlist.db"
	}
	if cfg.Storage.Owner == "" {
		cfg.Storage.Owner = "local"
	}
	if cfg.Quote.Source == "" {
		cfg.Quote.Source = "yahoo"
	}
	if cfg.Quote.TimeoutSeconds == 0 {
		cfg.Quote.TimeoutSeconds = 10
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Storage.Mode != "file" && c.Storage.Mode != "sqlite" {
		return fmt.Errorf("storage.mode must be \"file\" or \"sqlite\", got %q", c.Storage.Mode)
	}
	if c.Quote.Source != "yahoo" && c.Quote.Source != "mock" {
		return fmt.Errorf("quote.source must be \"yahoo\" or \"mock\", got %q", c.Quote.Source)
	}
	if c.Quote.TimeoutSeconds <= 0 {
		return fmt.Errorf("quote.timeout_seconds must be positive")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}
