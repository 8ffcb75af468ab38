package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"TWStockHarvester/internal/common"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Statement sources.
const (
	SourceFinMind = "finmind"
	SourceMOPS    = "mops"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Storage    StorageConfig        `yaml:"storage"`
	Sources    SourcesConfig        `yaml:"sources"`
	Statements StatementsConfig     `yaml:"statements"`
	Retry      RetryConfig          `yaml:"retry"`
	Schedule   ScheduleConfig       `yaml:"schedule"`
	Telegram   TelegramConfig       `yaml:"telegram"`
	Logging    common.LoggingConfig `yaml:"logging"`
	Proxy      string               `yaml:"proxy"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Backend string `yaml:"backend"`

	Badger struct {
		Path string `yaml:"path"`
	} `yaml:"badger"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
}

// SourcesConfig holds upstream endpoints. Empty URLs use the fetcher defaults.
type SourcesConfig struct {
	Listing struct {
		PrimaryURL string `yaml:"primary_url"`
		OTCURL     string `yaml:"otc_url"`
	} `yaml:"listing"`
	Yahoo struct {
		BaseURL string `yaml:"base_url"`
		Crumb   string `yaml:"crumb"`
	} `yaml:"yahoo"`
	FinMind struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"finmind"`
	MOPS struct {
		IFRSURL   string        `yaml:"ifrs_url"`
		LegacyURL string        `yaml:"legacy_url"`
		Interval  time.Duration `yaml:"interval"`
	} `yaml:"mops"`
	Timeout time.Duration `yaml:"timeout"`
}

// StatementsConfig picks the statement source.
type StatementsConfig struct {
	Source string `yaml:"source"`
}

// RetryConfig bounds per-ticker retries.
type RetryConfig struct {
	Attempts         int           `yaml:"attempts"`
	Backoff          time.Duration `yaml:"backoff"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
	RateLimitFatal   bool          `yaml:"rate_limit_fatal"`
}

// ScheduleConfig holds the cron specs for the schedule daemon.
type ScheduleConfig struct {
	PricesCron     string `yaml:"prices_cron"`
	StatementsCron string `yaml:"statements_cron"`
}

// TelegramConfig enables run notifications when both fields are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether notifications are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Path returns CONFIG_PATH or the default config location.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
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

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FINMIND_API_TOKEN"); v != "" {
		c.Sources.FinMind.Token = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("BADGER_PATH"); v != "" {
		c.Storage.Badger.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CRON_PRICES"); v != "" {
		c.Schedule.PricesCron = v
	}
	if v := os.Getenv("CRON_STATEMENTS"); v != "" {
		c.Schedule.StatementsCron = v
	}
	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.Attempts = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendBadger
	}
	if c.Storage.Badger.Path == "" {
		c.Storage.Badger.Path = "data/badger"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "data/harvester.db"
	}
	if c.Statements.Source == "" {
		c.Statements.Source = SourceFinMind
	}
	if c.Sources.MOPS.Interval == 0 {
		c.Sources.MOPS.Interval = 3 * time.Second
	}
	if c.Sources.Timeout == 0 {
		c.Sources.Timeout = 30 * time.Second
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.Backoff == 0 {
		c.Retry.Backoff = 10 * time.Second
	}
	if c.Retry.RateLimitBackoff == 0 {
		c.Retry.RateLimitBackoff = time.Hour
	}
	if c.Schedule.PricesCron == "" {
		c.Schedule.PricesCron = "0 0 18 * * 1-5"
	}
	if c.Schedule.StatementsCron == "" {
		c.Schedule.StatementsCron = "0 0 20 1,16 * *"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if len(c.Logging.Outputs) == 0 {
		c.Logging.Outputs = []string{"console"}
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of badger, sqlite, postgres", c.Storage.Backend)
	}
	switch c.Statements.Source {
	case SourceFinMind, SourceMOPS:
	default:
		return fmt.Errorf("statements.source %q is not one of finmind, mops", c.Statements.Source)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if c.Retry.Backoff < 0 || c.Retry.RateLimitBackoff < 0 {
		return fmt.Errorf("retry backoffs must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
