package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	s3blob "github.com/alanyoungcy/congressbot/internal/blob/s3"
	"github.com/alanyoungcy/congressbot/internal/cache/redis"
	"github.com/alanyoungcy/congressbot/internal/config"
	"github.com/alanyoungcy/congressbot/internal/crypto"
	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/metrics"
	"github.com/alanyoungcy/congressbot/internal/notify"
	"github.com/alanyoungcy/congressbot/internal/platform/alpaca"
	"github.com/alanyoungcy/congressbot/internal/platform/quiver"
	"github.com/alanyoungcy/congressbot/internal/server/handler"
	"github.com/alanyoungcy/congressbot/internal/store/file"
	"github.com/alanyoungcy/congressbot/internal/store/memory"
	"github.com/alanyoungcy/congressbot/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the modes need. It is
// constructed by Wire and torn down by the returned cleanup function. Stores
// backed by an optional service are nil when that service is disabled.
type Dependencies struct {
	// External APIs
	Feed   domain.FeedSource
	Broker *alpaca.Client

	// Stores
	Runs       domain.RunStore
	Signals    domain.SignalStore
	Trades     domain.TradeLogStore
	Portfolio  domain.PortfolioStore
	Audit      domain.AuditStore
	Watermarks domain.WatermarkStore

	// Caches
	PriceCache  domain.PriceCache
	Locks       domain.LockManager
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Blob storage
	Archiver *s3blob.RunArchiver

	// Notifications
	Notifier      *notify.Notifier
	NotifySenders int

	Metrics *metrics.Metrics

	// HealthChecks probe each enabled backing service.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from cfg and
// returns them together with a cleanup function that releases them.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Runs:         memory.NewRunStore(),
		SignalBus:    memory.NewSignalBus(),
		Metrics:      metrics.New(reg),
		HealthChecks: make(map[string]handler.HealthCheck),
	}

	// --- External APIs ---
	deps.Feed = quiver.NewClient(cfg.Quiver.BaseURL, cfg.Quiver.APIKey, cfg.Quiver.Timeout.Duration)

	broker, err := newBroker(cfg)
	switch {
	case err == nil:
		deps.Broker = broker
	case cfg.Trades():
		return fail("alpaca", err)
	default:
		logger.WarnContext(ctx, "broker credentials unavailable; live positions disabled",
			slog.String("error", err.Error()),
		)
	}

	// --- PostgreSQL ---
	var pgClient *postgres.Client
	if cfg.Database.Enabled {
		pgClient, err = postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			return fail("postgres", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail("postgres migrations", err)
			}
		}

		pool := pgClient.Pool()
		deps.Runs = postgres.NewRunStore(pool)
		deps.Signals = postgres.NewSignalStore(pool)
		deps.Trades = postgres.NewTradeLogStore(pool)
		deps.Portfolio = postgres.NewPortfolioStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail("redis", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
		deps.Locks = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	}

	// --- S3 blob storage ---
	var (
		blobReader domain.BlobReader
		blobWriter domain.BlobWriter
	)
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		blobReader = s3blob.NewReader(s3Client)
		blobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewRunArchiver(blobWriter, blobReader, cfg.S3.Prefix)
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Watermarks ---
	switch strings.ToLower(cfg.Watermark.Backend) {
	case "memory":
		deps.Watermarks = memory.NewWatermarkStore(nil)
	case "postgres":
		deps.Watermarks = postgres.NewWatermarkStore(pgClient.Pool())
	case "redis":
		deps.Watermarks = redis.NewWatermarkStore(redisClient, redis.DefaultWatermarkKey)
	case "s3":
		deps.Watermarks = s3blob.NewWatermarkStore(blobReader, blobWriter, cfg.Watermark.Path)
	default:
		deps.Watermarks = file.NewWatermarkStore(cfg.Watermark.Path)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	deps.NotifySenders = len(senders)

	logger.InfoContext(ctx, "dependencies wired",
		slog.Bool("postgres", pgClient != nil),
		slog.Bool("redis", redisClient != nil),
		slog.Bool("s3", deps.Archiver != nil),
		slog.Bool("broker", deps.Broker != nil),
		slog.String("watermark_backend", cfg.Watermark.Backend),
		slog.Int("notify_senders", len(senders)),
	)

	return deps, cleanup, nil
}

// newBroker resolves the Alpaca secret, opening the sealed file when one is
// configured, and builds the client.
func newBroker(cfg *config.Config) (*alpaca.Client, error) {
	if cfg.Alpaca.KeyID == "" {
		return nil, errors.New("alpaca: key_id is not set")
	}
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		Plain:      cfg.Alpaca.SecretKey,
		SealedPath: cfg.Alpaca.EncryptedSecretPath,
		Password:   cfg.Alpaca.SecretPassword,
	})
	if err != nil {
		return nil, err
	}
	return alpaca.NewClient(alpaca.Config{
		TradingURL: cfg.Alpaca.TradingURL,
		DataURL:    cfg.Alpaca.DataURL,
		KeyID:      cfg.Alpaca.KeyID,
		SecretKey:  secret,
		Timeout:    cfg.Alpaca.Timeout.Duration,
	}), nil
}
