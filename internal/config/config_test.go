package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrading() Config {
	cfg := Defaults()
	cfg.Quiver.APIKey = "qk"
	cfg.Alpaca.KeyID = "ak"
	cfg.Alpaca.SecretKey = "as"
	return cfg
}

func TestDefaults_ServerModeValid(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	require.NoError(t, cfg.Validate())
}

func TestValidate_TradingModeNeedsCredentials(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quiver: api_key")
	assert.Contains(t, err.Error(), "alpaca: key_id")
	assert.Contains(t, err.Error(), "alpaca: either secret_key or encrypted_secret_path")

	cfg = validTrading()
	require.NoError(t, cfg.Validate())
}

func TestValidate_SealedSecretNeedsPassword(t *testing.T) {
	cfg := validTrading()
	cfg.Alpaca.SecretKey = ""
	cfg.Alpaca.EncryptedSecretPath = "/etc/congressbot/alpaca.enc"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_password")

	cfg.Alpaca.SecretPassword = "pw"
	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validTrading()
	cfg.Mode = "yolo"
	cfg.LogLevel = "loud"
	cfg.Trading.Budget = 0
	cfg.Exit.Policy = "martingale"
	cfg.Watermark.Backend = "redis"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"unknown mode", "unknown log_level", "budget", "unknown policy", "redis backend requires"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_RateLimitNeedsRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	cfg.Server.RateLimit = 60
	require.Error(t, cfg.Validate())

	cfg.Redis.Enabled = true
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "schedule"

[trading]
budget = 75.5

[schedule]
interval = "6h"

[exit]
policy = "stop_loss_take_profit"
`), 0o600))

	t.Setenv("QUIVER_KEY", "alias-key")
	t.Setenv("ALPACA_KEY", "alias-id")
	t.Setenv("CONGRESSBOT_ALPACA_KEY_ID", "prefixed-id")
	t.Setenv("CONGRESSBOT_TRADING_THRESHOLD", "7")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/bot")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "schedule", cfg.Mode)
	assert.Equal(t, 75.5, cfg.Trading.Budget)
	assert.Equal(t, 7, cfg.Trading.Threshold)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.Interval.Duration)
	assert.Equal(t, "stop_loss_take_profit", cfg.Exit.Policy)
	assert.Equal(t, "alias-key", cfg.Quiver.APIKey)
	assert.Equal(t, "prefixed-id", cfg.Alpaca.KeyID)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://u:p@db:5432/bot", cfg.Database.DSN)
	assert.Equal(t, 0.08, cfg.Exit.TrailPercent, "unset fields keep defaults")
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "trailing_sl.json", cfg.Watermark.Path)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validTrading()
	cfg.Database.Password = "hunter2"
	cfg.Notify.Events = []string{"run_finished"}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Quiver.APIKey)
	assert.Equal(t, "***", out.Alpaca.SecretKey)
	assert.Equal(t, "***", out.Database.Password)
	assert.Empty(t, out.Redis.Password)

	out.Notify.Events[0] = "changed"
	assert.Equal(t, "run_finished", cfg.Notify.Events[0])
	assert.Equal(t, "as", cfg.Alpaca.SecretKey)
}

func TestLoad_SalesLogPathFromEnv(t *testing.T) {
	t.Setenv("CONGRESSBOT_EXIT_SALES_LOG_PATH", "/var/lib/congressbot/sales.csv")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/congressbot/sales.csv", cfg.Exit.SalesLogPath)
}
