// Package config defines the top-level configuration for congressbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CONGRESSBOT_* environment variables.
type Config struct {
	Quiver    QuiverConfig    `toml:"quiver"`
	Alpaca    AlpacaConfig    `toml:"alpaca"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Trading   TradingConfig   `toml:"trading"`
	Exit      ExitConfig      `toml:"exit"`
	Watermark WatermarkConfig `toml:"watermark"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// QuiverConfig holds the disclosure feed endpoint and credentials.
type QuiverConfig struct {
	APIKey  string   `toml:"api_key"`
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// AlpacaConfig holds brokerage API endpoints and credentials. The secret may
// be given in clear text or sealed on disk (see cmd/sealsecret).
type AlpacaConfig struct {
	KeyID               string   `toml:"key_id"`
	SecretKey           string   `toml:"secret_key"`
	EncryptedSecretPath string   `toml:"encrypted_secret_path"`
	SecretPassword      string   `toml:"secret_password"`
	TradingURL          string   `toml:"trading_url"`
	DataURL             string   `toml:"data_url"`
	Timeout             duration `toml:"timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	PriceTTL   duration `toml:"price_ttl"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ScoringConfig selects the disclosure scoring profile.
type ScoringConfig struct {
	// Profile is "canonical" or "extended".
	Profile          string   `toml:"profile"`
	HighProfileNames []string `toml:"high_profile_names"`
}

// TradingConfig holds buy-side selection parameters.
type TradingConfig struct {
	Threshold        int     `toml:"threshold"`
	Budget           float64 `toml:"budget"`
	PriceConcurrency int     `toml:"price_concurrency"`
}

// ExitConfig holds exit policy parameters.
type ExitConfig struct {
	// Policy is "trailing_stop" or "stop_loss_take_profit".
	Policy        string  `toml:"policy"`
	TrailPercent  float64 `toml:"trail_percent"`
	MaxDailyExits int     `toml:"max_daily_exits"`
	StopLoss      float64 `toml:"stop_loss"`
	TakeProfit    float64 `toml:"take_profit"`
	// SalesLogPath is the CSV file executed sells are appended to. Empty
	// disables it.
	SalesLogPath string `toml:"sales_log_path"`
}

// WatermarkConfig selects where the per-symbol highest prices are kept.
type WatermarkConfig struct {
	// Backend is one of file, memory, postgres, redis, s3.
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// ScheduleConfig controls the schedule and full modes.
type ScheduleConfig struct {
	Interval   duration `toml:"interval"`
	RunOnStart bool     `toml:"run_on_start"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per minute per client; 0 disables limiting.
	// Requires redis.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Quiver: QuiverConfig{
			BaseURL: "https://api.quiverquant.com",
			Timeout: duration{30 * time.Second},
		},
		Alpaca: AlpacaConfig{
			TradingURL: "https://paper-api.alpaca.markets",
			DataURL:    "https://data.alpaca.markets",
			Timeout:    duration{15 * time.Second},
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "congressbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			PriceTTL:   duration{time.Minute},
			LockTTL:    duration{15 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "congressbot",
			Prefix:         "runs",
			ForcePathStyle: true,
		},
		Scoring: ScoringConfig{
			Profile: "canonical",
		},
		Trading: TradingConfig{
			Threshold:        6,
			Budget:           50,
			PriceConcurrency: 4,
		},
		Exit: ExitConfig{
			Policy:        "trailing_stop",
			TrailPercent:  0.08,
			MaxDailyExits: 3,
			StopLoss:      -0.05,
			TakeProfit:    0.10,
			SalesLogPath:  "sales_log.csv",
		},
		Watermark: WatermarkConfig{
			Backend: "file",
			Path:    "trailing_sl.json",
		},
		Schedule: ScheduleConfig{
			Interval:   duration{24 * time.Hour},
			RunOnStart: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:8501"},
		},
		Notify: NotifyConfig{
			Events: []string{"run_finished", "order_failed", "error"},
		},
		Mode:     "once",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"once":     true,
	"schedule": true,
	"server":   true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validProfiles = map[string]bool{"canonical": true, "extended": true}

var validPolicies = map[string]bool{"trailing_stop": true, "stop_loss_take_profit": true}

var validBackends = map[string]bool{
	"file":     true,
	"memory":   true,
	"postgres": true,
	"redis":    true,
	"s3":       true,
}

// Trades reports whether the configured mode places orders.
func (c *Config) Trades() bool {
	switch strings.ToLower(c.Mode) {
	case "once", "schedule", "full":
		return true
	}
	return false
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, schedule, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Credentials are only needed when the mode trades.
	if c.Trades() {
		if c.Quiver.APIKey == "" {
			errs = append(errs, "quiver: api_key must be set for mode "+c.Mode)
		}
		if c.Alpaca.KeyID == "" {
			errs = append(errs, "alpaca: key_id must be set for mode "+c.Mode)
		}
		if c.Alpaca.SecretKey == "" && c.Alpaca.EncryptedSecretPath == "" {
			errs = append(errs, "alpaca: either secret_key or encrypted_secret_path must be set for mode "+c.Mode)
		}
		if c.Alpaca.EncryptedSecretPath != "" && c.Alpaca.SecretPassword == "" {
			errs = append(errs, "alpaca: secret_password is required when encrypted_secret_path is set")
		}
	}
	if c.Quiver.BaseURL == "" {
		errs = append(errs, "quiver: base_url must not be empty")
	}
	if c.Alpaca.TradingURL == "" || c.Alpaca.DataURL == "" {
		errs = append(errs, "alpaca: trading_url and data_url must not be empty")
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	if !validProfiles[strings.ToLower(c.Scoring.Profile)] {
		errs = append(errs, fmt.Sprintf("scoring: unknown profile %q (valid: canonical, extended)", c.Scoring.Profile))
	}

	if c.Trading.Budget <= 0 {
		errs = append(errs, "trading: budget must be > 0")
	}
	if c.Trading.PriceConcurrency < 1 {
		errs = append(errs, "trading: price_concurrency must be >= 1")
	}

	if !validPolicies[strings.ToLower(c.Exit.Policy)] {
		errs = append(errs, fmt.Sprintf("exit: unknown policy %q (valid: trailing_stop, stop_loss_take_profit)", c.Exit.Policy))
	}
	if c.Exit.TrailPercent <= 0 || c.Exit.TrailPercent >= 1 {
		errs = append(errs, "exit: trail_percent must be in (0, 1)")
	}
	if c.Exit.StopLoss >= 0 {
		errs = append(errs, "exit: stop_loss must be negative")
	}
	if c.Exit.TakeProfit <= 0 {
		errs = append(errs, "exit: take_profit must be > 0")
	}

	backend := strings.ToLower(c.Watermark.Backend)
	switch {
	case !validBackends[backend]:
		errs = append(errs, fmt.Sprintf("watermark: unknown backend %q (valid: file, memory, postgres, redis, s3)", c.Watermark.Backend))
	case backend == "file" && c.Watermark.Path == "":
		errs = append(errs, "watermark: path must be set for the file backend")
	case backend == "postgres" && !c.Database.Enabled:
		errs = append(errs, "watermark: postgres backend requires database.enabled")
	case backend == "redis" && !c.Redis.Enabled:
		errs = append(errs, "watermark: redis backend requires redis.enabled")
	case backend == "s3" && !c.S3.Enabled:
		errs = append(errs, "watermark: s3 backend requires s3.enabled")
	}

	if (mode == "schedule" || mode == "full") && c.Schedule.Interval.Duration <= 0 {
		errs = append(errs, "schedule: interval must be > 0")
	}

	if mode == "server" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && !c.Redis.Enabled {
			errs = append(errs, "server: rate_limit requires redis.enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
