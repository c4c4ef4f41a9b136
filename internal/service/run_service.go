package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/metrics"
)

// RunLockKey guards against two runs trading the same account at once.
const RunLockKey = "congressbot:run"

// NoopLocker is a domain.LockManager for single-instance deployments.
type NoopLocker struct{}

// Acquire always succeeds.
func (NoopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// RunService executes one full run: buy phase, then exit phase, then
// reporting.
type RunService struct {
	buy      *BuyService
	exit     *ExitService
	locks    domain.LockManager
	lockTTL  time.Duration
	runs     domain.RunStore
	reporter *Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// RunServiceDeps groups the RunService collaborators. Locks and Runs may be
// nil.
type RunServiceDeps struct {
	Buy      *BuyService
	Exit     *ExitService
	Locks    domain.LockManager
	LockTTL  time.Duration
	Runs     domain.RunStore
	Reporter *Reporter
	Metrics  *metrics.Metrics
}

// NewRunService creates a RunService.
func NewRunService(deps RunServiceDeps, logger *slog.Logger) *RunService {
	locks := deps.Locks
	if locks == nil {
		locks = NoopLocker{}
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RunService{
		buy:      deps.Buy,
		exit:     deps.Exit,
		locks:    locks,
		lockTTL:  ttl,
		runs:     deps.Runs,
		reporter: deps.Reporter,
		metrics:  deps.Metrics,
		logger:   logger.With(slog.String("component", "run_service")),
		now:      time.Now,
	}
}

// Run executes one run. The exit phase always runs, even when the buy phase
// failed. The only error returned is failure to take the run lock, in which
// case nothing was traded.
func (s *RunService) Run(ctx context.Context) (domain.RunSummary, error) {
	unlock, err := s.locks.Acquire(ctx, RunLockKey, s.lockTTL)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("run_service: acquire run lock: %w", err)
	}
	defer unlock()

	run := domain.RunInfo{ID: uuid.NewString(), StartedAt: s.now().UTC()}
	logger := s.logger.With(slog.String("run_id", run.ID))
	logger.InfoContext(ctx, "run started")

	if s.runs != nil {
		if err := s.runs.Start(ctx, run); err != nil {
			logger.WarnContext(ctx, "run record start failed", slog.String("error", err.Error()))
		}
	}

	buyRep := s.buy.Run(ctx, run)
	exitRep := s.exit.Run(ctx, run)

	summary := domain.RunSummary{
		Run:        run,
		FinishedAt: s.now().UTC(),
		Buy:        buyRep,
		Exit:       exitRep,
	}
	summary.TradesMade, summary.Errors = tally(buyRep, exitRep)

	if s.runs != nil {
		if err := s.runs.Finish(ctx, run.ID, summary.FinishedAt, summary.TradesMade, summary.Errors); err != nil {
			logger.WarnContext(ctx, "run record finish failed", slog.String("error", err.Error()))
		}
	}

	s.reporter.RunFinished(ctx, summary)
	if s.metrics != nil {
		s.metrics.ObserveRun(run.StartedAt, summary.FinishedAt, summary.Errors)
	}

	logger.InfoContext(ctx, "run finished",
		slog.Int("trades_made", summary.TradesMade),
		slog.Int("errors", summary.Errors),
		slog.Duration("elapsed", summary.FinishedAt.Sub(run.StartedAt)),
	)
	return summary, nil
}

// tally counts successful orders and every recorded failure of a run.
func tally(buy domain.BuyReport, ex domain.ExitReport) (trades, errs int) {
	if buy.Fatal != nil {
		errs++
	}
	errs += len(ex.Errors)
	for _, orders := range [][]domain.OrderResult{buy.Orders, ex.Orders} {
		for _, o := range orders {
			if o.Success {
				trades++
			} else {
				errs++
			}
		}
	}
	return trades, errs
}

// Compile-time interface check.
var _ domain.LockManager = NoopLocker{}
