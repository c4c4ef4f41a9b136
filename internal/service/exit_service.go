package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/exit"
	"github.com/alanyoungcy/congressbot/internal/metrics"
)

// ExitService runs the exit phase: track watermarks, persist them, plan
// liquidations with the configured policy and submit sells.
type ExitService struct {
	broker     domain.Broker
	watermarks domain.WatermarkStore
	policy     exit.Policy
	reporter   *Reporter
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewExitService creates an ExitService.
func NewExitService(
	broker domain.Broker,
	watermarks domain.WatermarkStore,
	policy exit.Policy,
	reporter *Reporter,
	logger *slog.Logger,
) *ExitService {
	return &ExitService{
		broker:     broker,
		watermarks: watermarks,
		policy:     policy,
		reporter:   reporter,
		logger:     logger.With(slog.String("component", "exit_service")),
		now:        time.Now,
	}
}

// WithMetrics attaches exit counters.
func (s *ExitService) WithMetrics(m *metrics.Metrics) *ExitService {
	s.metrics = m
	return s
}

// Run executes one exit phase. The watermark state is saved once, before any
// sell is submitted, whatever happens to the sells. A corrupt store is
// reseeded from current prices. When the store cannot be read for any other
// reason the positions are still evaluated and sold from an empty state, but
// nothing is saved, so the persisted peaks are never lowered.
func (s *ExitService) Run(ctx context.Context, run domain.RunInfo) domain.ExitReport {
	var rep domain.ExitReport
	logger := s.logger.With(slog.String("run_id", run.ID))

	persist := true
	state, err := s.watermarks.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCorruptState):
		logger.WarnContext(ctx, "watermarks corrupt, reseeding", slog.String("error", err.Error()))
		rep.Errors = append(rep.Errors, fmt.Sprintf("load watermarks: %v", err))
	default:
		persist = false
		logger.ErrorContext(ctx, "watermarks unavailable, state will not be saved", slog.String("error", err.Error()))
		rep.Errors = append(rep.Errors, fmt.Sprintf("load watermarks: %v", err))
	}
	if err != nil || state == nil {
		state = domain.WatermarkState{}
	}

	positions, err := s.broker.Positions(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "positions unavailable", slog.String("error", err.Error()))
		rep.Errors = append(rep.Errors, fmt.Sprintf("fetch positions: %v", err))
		positions = nil
	}
	rep.Positions = positions

	rep.Evaluations, rep.Watermarks = exit.Track(positions, state)

	if persist {
		if err := s.watermarks.Save(ctx, rep.Watermarks); err != nil {
			logger.ErrorContext(ctx, "watermark save failed", slog.String("error", err.Error()))
			rep.Errors = append(rep.Errors, fmt.Sprintf("save watermarks: %v", err))
		}
	}

	for _, ev := range rep.Evaluations {
		logger.DebugContext(ctx, "position evaluated",
			slog.String("symbol", ev.Symbol),
			slog.Float64("current", ev.CurrentPrice),
			slog.Float64("highest", ev.Highest),
			slog.Float64("drop", ev.Drawdown),
			slog.Float64("pl", ev.PL),
		)
	}

	rep.Plan = s.policy.Plan(rep.Evaluations)
	if s.metrics != nil {
		for _, sell := range rep.Plan.Sells {
			s.metrics.ExitSignals.WithLabelValues(string(sell.Reason)).Inc()
		}
		s.metrics.ExitDeferred.Add(float64(len(rep.Plan.Deferred)))
	}
	for _, d := range rep.Plan.Deferred {
		logger.InfoContext(ctx, "sell deferred by daily cap",
			slog.String("symbol", d.Symbol),
			slog.Float64("pl", d.PL),
		)
	}

	for i := range rep.Plan.Sells {
		sell := rep.Plan.Sells[i]
		res := s.sell(ctx, logger, sell)
		rep.Orders = append(rep.Orders, res)
		if s.metrics != nil {
			s.metrics.ObserveOrder(string(domain.OrderSideSell), res.Success)
		}
		s.reporter.OrderPlaced(ctx, run, domain.OrderReport{Result: res, Sell: &sell})
	}

	logger.InfoContext(ctx, "exit phase complete",
		slog.String("policy", rep.Plan.Policy),
		slog.Int("positions", len(rep.Evaluations)),
		slog.Int("sells", len(rep.Plan.Sells)),
		slog.Int("deferred", len(rep.Plan.Deferred)),
	)
	return rep
}

func (s *ExitService) sell(ctx context.Context, logger *slog.Logger, sell domain.SellInstruction) domain.OrderResult {
	if sell.Quantity <= 0 {
		logger.WarnContext(ctx, "sell skipped", slog.String("symbol", sell.Symbol), slog.String("error", domain.ErrZeroQuantity.Error()))
		return domain.OrderResult{
			Symbol:      sell.Symbol,
			Side:        domain.OrderSideSell,
			Reason:      domain.ErrZeroQuantity.Error(),
			SubmittedAt: s.now().UTC(),
		}
	}
	return submit(ctx, s.broker, logger, sell.Symbol, sell.Quantity, domain.OrderSideSell)
}
