package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CONGRESSBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file so that a deployment
// can be configured from the environment alone. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CONGRESSBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). The bare QUIVER_KEY, ALPACA_KEY, ALPACA_SECRET and DATABASE_URL
// names are accepted as aliases; the prefixed name wins when both are set.
func applyEnvOverrides(cfg *Config) {
	// ── Quiver ──
	setStr(&cfg.Quiver.APIKey, "QUIVER_KEY")
	setStr(&cfg.Quiver.APIKey, "CONGRESSBOT_QUIVER_API_KEY")
	setStr(&cfg.Quiver.BaseURL, "CONGRESSBOT_QUIVER_BASE_URL")
	setDuration(&cfg.Quiver.Timeout, "CONGRESSBOT_QUIVER_TIMEOUT")

	// ── Alpaca ──
	setStr(&cfg.Alpaca.KeyID, "ALPACA_KEY")
	setStr(&cfg.Alpaca.KeyID, "CONGRESSBOT_ALPACA_KEY_ID")
	setStr(&cfg.Alpaca.SecretKey, "ALPACA_SECRET")
	setStr(&cfg.Alpaca.SecretKey, "CONGRESSBOT_ALPACA_SECRET_KEY")
	setStr(&cfg.Alpaca.EncryptedSecretPath, "CONGRESSBOT_ALPACA_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Alpaca.SecretPassword, "CONGRESSBOT_ALPACA_SECRET_PASSWORD")
	setStr(&cfg.Alpaca.TradingURL, "CONGRESSBOT_ALPACA_TRADING_URL")
	setStr(&cfg.Alpaca.DataURL, "CONGRESSBOT_ALPACA_DATA_URL")
	setDuration(&cfg.Alpaca.Timeout, "CONGRESSBOT_ALPACA_TIMEOUT")

	// ── Database ──
	if os.Getenv("DATABASE_URL") != "" {
		setStr(&cfg.Database.DSN, "DATABASE_URL")
		cfg.Database.Enabled = true
	}
	setBool(&cfg.Database.Enabled, "CONGRESSBOT_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "CONGRESSBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "CONGRESSBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "CONGRESSBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "CONGRESSBOT_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "CONGRESSBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "CONGRESSBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "CONGRESSBOT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "CONGRESSBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "CONGRESSBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "CONGRESSBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CONGRESSBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CONGRESSBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CONGRESSBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CONGRESSBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CONGRESSBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CONGRESSBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CONGRESSBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "CONGRESSBOT_REDIS_PRICE_TTL")
	setDuration(&cfg.Redis.LockTTL, "CONGRESSBOT_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CONGRESSBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CONGRESSBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CONGRESSBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "CONGRESSBOT_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "CONGRESSBOT_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "CONGRESSBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CONGRESSBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CONGRESSBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CONGRESSBOT_S3_FORCE_PATH_STYLE")

	// ── Scoring / trading / exit ──
	setStr(&cfg.Scoring.Profile, "CONGRESSBOT_SCORING_PROFILE")
	setStringSlice(&cfg.Scoring.HighProfileNames, "CONGRESSBOT_SCORING_HIGH_PROFILE_NAMES")
	setInt(&cfg.Trading.Threshold, "CONGRESSBOT_TRADING_THRESHOLD")
	setFloat64(&cfg.Trading.Budget, "CONGRESSBOT_TRADING_BUDGET")
	setInt(&cfg.Trading.PriceConcurrency, "CONGRESSBOT_TRADING_PRICE_CONCURRENCY")
	setStr(&cfg.Exit.Policy, "CONGRESSBOT_EXIT_POLICY")
	setFloat64(&cfg.Exit.TrailPercent, "CONGRESSBOT_EXIT_TRAIL_PERCENT")
	setInt(&cfg.Exit.MaxDailyExits, "CONGRESSBOT_EXIT_MAX_DAILY_EXITS")
	setFloat64(&cfg.Exit.StopLoss, "CONGRESSBOT_EXIT_STOP_LOSS")
	setFloat64(&cfg.Exit.TakeProfit, "CONGRESSBOT_EXIT_TAKE_PROFIT")
	setStr(&cfg.Exit.SalesLogPath, "CONGRESSBOT_EXIT_SALES_LOG_PATH")

	// ── Watermark / schedule ──
	setStr(&cfg.Watermark.Backend, "CONGRESSBOT_WATERMARK_BACKEND")
	setStr(&cfg.Watermark.Path, "CONGRESSBOT_WATERMARK_PATH")
	setDuration(&cfg.Schedule.Interval, "CONGRESSBOT_SCHEDULE_INTERVAL")
	setBool(&cfg.Schedule.RunOnStart, "CONGRESSBOT_SCHEDULE_RUN_ON_START")

	// ── Server ──
	setInt(&cfg.Server.Port, "CONGRESSBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CONGRESSBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CONGRESSBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CONGRESSBOT_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CONGRESSBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CONGRESSBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CONGRESSBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CONGRESSBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CONGRESSBOT_MODE")
	setStr(&cfg.LogLevel, "CONGRESSBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
