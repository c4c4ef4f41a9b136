package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/exit"
	"github.com/alanyoungcy/congressbot/internal/notify"
	"github.com/alanyoungcy/congressbot/internal/server"
	"github.com/alanyoungcy/congressbot/internal/server/handler"
	"github.com/alanyoungcy/congressbot/internal/server/ws"
	"github.com/alanyoungcy/congressbot/internal/service"
	"github.com/alanyoungcy/congressbot/internal/signal"
	"github.com/alanyoungcy/congressbot/internal/store/file"
)

// OnceMode performs a single run and returns. This is the cron deployment.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	runs, err := a.buildRunService(deps)
	if err != nil {
		return err
	}
	_, err = runs.Run(ctx)
	return err
}

// ScheduleMode runs on a fixed interval until ctx is cancelled.
func (a *App) ScheduleMode(ctx context.Context, deps *Dependencies) error {
	runs, err := a.buildRunService(deps)
	if err != nil {
		return err
	}
	return a.scheduleLoop(ctx, runs)
}

// ServerMode serves the read API and the WebSocket event stream only.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the schedule and serves the read API side by side.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	runs, err := a.buildRunService(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduleLoop(ctx, runs)
	})
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// scheduleLoop runs once immediately when configured to, then on every tick.
// A run that could not take the lock is logged and skipped.
func (a *App) scheduleLoop(ctx context.Context, runs *service.RunService) error {
	interval := a.cfg.Schedule.Interval.Duration
	a.logger.InfoContext(ctx, "scheduler started",
		slog.Duration("interval", interval),
		slog.Bool("run_on_start", a.cfg.Schedule.RunOnStart),
	)

	runOnce := func() {
		if _, err := runs.Run(ctx); err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.WarnContext(ctx, "run skipped: another run holds the lock")
				return
			}
			a.logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
		}
	}

	if a.cfg.Schedule.RunOnStart {
		runOnce()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}

// buildRunService assembles the buy and exit pipelines and the report sinks.
func (a *App) buildRunService(deps *Dependencies) (*service.RunService, error) {
	scorer, err := signal.NewScorer(a.cfg.Scoring.Profile, signal.ScorerOptions{
		HighProfileNames: a.cfg.Scoring.HighProfileNames,
	})
	if err != nil {
		return nil, err
	}
	policy, err := exit.NewPolicy(a.cfg.Exit.Policy, exit.PolicyConfig{
		TrailPercent:  a.cfg.Exit.TrailPercent,
		MaxDailyExits: a.cfg.Exit.MaxDailyExits,
		StopLoss:      a.cfg.Exit.StopLoss,
		TakeProfit:    a.cfg.Exit.TakeProfit,
	})
	if err != nil {
		return nil, err
	}

	reporter := service.NewReporter(a.logger, a.reportSinks(deps)...).WithMetrics(deps.Metrics)
	a.logger.Info("report sinks configured", slog.Any("sinks", reporter.Sinks()))

	prices := service.NewPriceService(deps.Broker, deps.PriceCache, a.cfg.Redis.PriceTTL.Duration, a.logger).
		WithMetrics(deps.Metrics)
	selector := signal.NewSelector(signal.SelectorConfig{
		Threshold:   a.cfg.Trading.Threshold,
		Budget:      a.cfg.Trading.Budget,
		Concurrency: a.cfg.Trading.PriceConcurrency,
	}, prices)

	buy := service.NewBuyService(deps.Feed, scorer, selector, deps.Broker, reporter, a.logger).
		WithMetrics(deps.Metrics)
	ex := service.NewExitService(deps.Broker, deps.Watermarks, policy, reporter, a.logger).
		WithMetrics(deps.Metrics)

	return service.NewRunService(service.RunServiceDeps{
		Buy:      buy,
		Exit:     ex,
		Locks:    deps.Locks,
		LockTTL:  a.cfg.Redis.LockTTL.Duration,
		Runs:     deps.Runs,
		Reporter: reporter,
		Metrics:  deps.Metrics,
	}, a.logger), nil
}

// reportSinks returns a sink for every enabled reporting backend.
func (a *App) reportSinks(deps *Dependencies) []domain.ReportSink {
	sinks := []domain.ReportSink{service.NewBusSink(deps.SignalBus)}
	if deps.Signals != nil {
		sd := service.StoreSinkDeps{
			Signals:   deps.Signals,
			Trades:    deps.Trades,
			Portfolio: deps.Portfolio,
			Audit:     deps.Audit,
		}
		if deps.Broker != nil {
			sd.Account = deps.Broker
		}
		sinks = append(sinks, service.NewStoreSink(sd))
	}
	if deps.Archiver != nil {
		sinks = append(sinks, deps.Archiver)
	}
	if deps.NotifySenders > 0 {
		sinks = append(sinks, notify.NewSink(deps.Notifier))
	}
	if a.cfg.Exit.SalesLogPath != "" {
		sinks = append(sinks, file.NewSalesLog(a.cfg.Exit.SalesLogPath))
	}
	return sinks
}

// startHTTPServer starts the read API and the WebSocket hub on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		Pattern:   service.ChannelPattern,
		StartedAt: a.startedAt,
	}).WithMetrics(deps.Metrics)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	var (
		live    handler.PositionLister
		archive handler.SnapshotSource
		snap    handler.SnapshotLister
	)
	if deps.Broker != nil {
		live = deps.Broker
	}
	if deps.Archiver != nil {
		archive = deps.Archiver
	}
	if deps.Portfolio != nil {
		snap = deps.Portfolio
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.cfg.Mode, a.startedAt, deps.HealthChecks, a.logger),
		Runs:       handler.NewRunHandler(deps.Runs, a.logger),
		Scores:     handler.NewScoreHandler(deps.Signals, a.logger),
		Orders:     handler.NewOrderHandler(deps.Trades, a.logger),
		Positions:  handler.NewPositionHandler(live, snap, a.logger),
		Watermarks: handler.NewWatermarkHandler(deps.Watermarks, a.logger),
		Archives:   handler.NewArchiveHandler(archive, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, server.Deps{
		Hub:     hub,
		Metrics: deps.Metrics,
		Limiter: deps.RateLimiter,
	}, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
