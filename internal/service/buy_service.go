package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/metrics"
	"github.com/alanyoungcy/congressbot/internal/signal"
)

// BuyService runs the buy phase: fetch disclosures, normalize, score, select
// and submit buys.
type BuyService struct {
	feed     domain.FeedSource
	scorer   signal.Scorer
	selector *signal.Selector
	broker   domain.Broker
	reporter *Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewBuyService creates a BuyService.
func NewBuyService(
	feed domain.FeedSource,
	scorer signal.Scorer,
	selector *signal.Selector,
	broker domain.Broker,
	reporter *Reporter,
	logger *slog.Logger,
) *BuyService {
	return &BuyService{
		feed:     feed,
		scorer:   scorer,
		selector: selector,
		broker:   broker,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "buy_service")),
		now:      time.Now,
	}
}

// WithMetrics attaches buy phase counters.
func (s *BuyService) WithMetrics(m *metrics.Metrics) *BuyService {
	s.metrics = m
	return s
}

// Run executes one buy phase. Phase-level failures (feed, schema, held
// positions) end the phase and are reported in BuyReport.Fatal; per-order
// failures are recorded in the order results and never stop the loop.
func (s *BuyService) Run(ctx context.Context, run domain.RunInfo) domain.BuyReport {
	var rep domain.BuyReport
	logger := s.logger.With(slog.String("run_id", run.ID))

	raw, err := s.feed.FetchDisclosures(ctx)
	if err != nil {
		rep.Fatal = fmt.Errorf("buy: fetch disclosures: %w", err)
		logger.ErrorContext(ctx, "buy phase aborted", slog.String("error", rep.Fatal.Error()))
		return rep
	}
	rep.Fetched = len(raw)

	records, err := signal.Normalize(raw, s.now())
	if err != nil {
		rep.Fatal = fmt.Errorf("buy: normalize: %w", err)
		logger.ErrorContext(ctx, "buy phase aborted", slog.String("error", rep.Fatal.Error()))
		return rep
	}
	rep.Retained = len(records)
	if s.metrics != nil {
		s.metrics.DisclosuresFetched.Add(float64(rep.Fetched))
		s.metrics.DisclosuresRetained.Add(float64(rep.Retained))
	}

	rep.Scored = signal.Rank(records, s.scorer)
	s.reporter.ScoredCandidates(ctx, run, rep.Scored)
	logger.InfoContext(ctx, "disclosures scored",
		slog.Int("fetched", rep.Fetched),
		slog.Int("retained", rep.Retained),
		slog.String("profile", s.scorer.Name()),
	)

	// Without the held set the one-position-per-symbol rule cannot hold.
	positions, err := s.broker.Positions(ctx)
	if err != nil {
		rep.Fatal = fmt.Errorf("buy: fetch held positions: %w", err)
		logger.ErrorContext(ctx, "buy phase aborted", slog.String("error", rep.Fatal.Error()))
		return rep
	}

	sel := s.selector.Select(ctx, rep.Scored, signal.HeldSymbols(positions))
	rep.Buys = sel.Buys
	rep.Skipped = sel.Skipped
	for _, sk := range sel.Skipped {
		if s.metrics != nil {
			s.metrics.CandidatesSkipped.WithLabelValues(string(sk.Reason)).Inc()
		}
		logger.DebugContext(ctx, "candidate skipped",
			slog.String("ticker", sk.Ticker),
			slog.Int("score", sk.Score),
			slog.String("reason", string(sk.Reason)),
			slog.String("detail", sk.Detail),
		)
	}

	for i := range sel.Buys {
		buy := sel.Buys[i]
		res := submit(ctx, s.broker, logger, buy.Symbol, buy.Quantity, domain.OrderSideBuy)
		rep.Orders = append(rep.Orders, res)
		if s.metrics != nil {
			s.metrics.ObserveOrder(string(domain.OrderSideBuy), res.Success)
		}
		s.reporter.OrderPlaced(ctx, run, domain.OrderReport{Result: res, Buy: &buy})
	}

	logger.InfoContext(ctx, "buy phase complete",
		slog.Int("buys", len(rep.Buys)),
		slog.Int("skipped", len(rep.Skipped)),
	)
	return rep
}
