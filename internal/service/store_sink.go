package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/signal"
)

// StoreSink is a domain.ReportSink that writes the run's disclosures,
// scores, orders, position snapshot, portfolio value and an audit entry to
// the database stores.
type StoreSink struct {
	signals   domain.SignalStore
	trades    domain.TradeLogStore
	portfolio domain.PortfolioStore
	audit     domain.AuditStore
	account   domain.AccountSource
	now       func() time.Time
}

// StoreSinkDeps groups the stores a StoreSink writes to. account may be nil,
// in which case portfolio value is not recorded.
type StoreSinkDeps struct {
	Signals   domain.SignalStore
	Trades    domain.TradeLogStore
	Portfolio domain.PortfolioStore
	Audit     domain.AuditStore
	Account   domain.AccountSource
}

// NewStoreSink creates a StoreSink.
func NewStoreSink(deps StoreSinkDeps) *StoreSink {
	return &StoreSink{
		signals:   deps.Signals,
		trades:    deps.Trades,
		portfolio: deps.Portfolio,
		audit:     deps.Audit,
		account:   deps.Account,
		now:       time.Now,
	}
}

// Name implements domain.ReportSink.
func (s *StoreSink) Name() string { return "postgres" }

// ScoredCandidates writes the disclosure log and per-ticker score log.
func (s *StoreSink) ScoredCandidates(ctx context.Context, run domain.RunInfo, scored []domain.ScoredTransaction) error {
	if len(scored) == 0 {
		return nil
	}
	var errs []error
	if err := s.signals.InsertDisclosures(ctx, run.ID, scored); err != nil {
		errs = append(errs, err)
	}
	if err := s.signals.InsertTickerScores(ctx, run.ID, signal.Summarize(run.ID, scored, s.now().UTC())); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// OrderPlaced appends the order to the bot trade log.
func (s *StoreSink) OrderPlaced(ctx context.Context, run domain.RunInfo, rep domain.OrderReport) error {
	return s.trades.Insert(ctx, TradeLogEntry(run, rep))
}

// RunFinished records the position snapshot, the account value and an
// audit entry.
func (s *StoreSink) RunFinished(ctx context.Context, sum domain.RunSummary) error {
	var errs []error

	if len(sum.Exit.Positions) > 0 {
		if err := s.portfolio.RecordPositions(ctx, sum.Run.ID, sum.Exit.Positions); err != nil {
			errs = append(errs, err)
		}
	}

	if s.account != nil {
		value, err := s.account.PortfolioValue(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("portfolio value: %w", err))
		} else if err := s.portfolio.RecordValue(ctx, sum.Run.ID, value); err != nil {
			errs = append(errs, err)
		}
	}

	level := "info"
	if sum.Errors > 0 {
		level = "error"
	}
	detail := map[string]any{
		"run_id":      sum.Run.ID,
		"fetched":     sum.Buy.Fetched,
		"retained":    sum.Buy.Retained,
		"buys":        len(sum.Buy.Buys),
		"sells":       len(sum.Exit.Plan.Sells),
		"deferred":    len(sum.Exit.Plan.Deferred),
		"trades_made": sum.TradesMade,
		"errors":      sum.Errors,
	}
	if sum.Buy.Fatal != nil {
		detail["buy_fatal"] = sum.Buy.Fatal.Error()
	}
	if len(sum.Exit.Errors) > 0 {
		detail["exit_errors"] = sum.Exit.Errors
	}
	if err := s.audit.Log(ctx, level, "run finished", detail); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// TradeLogEntry converts an order report into its trade log row.
func TradeLogEntry(run domain.RunInfo, rep domain.OrderReport) domain.TradeLogEntry {
	r := rep.Result
	e := domain.TradeLogEntry{
		RunID:         run.ID,
		OrderID:       r.OrderID,
		ClientOrderID: r.ClientOrderID,
		Symbol:        r.Symbol,
		Side:          r.Side,
		Quantity:      r.Quantity,
		Price:         r.Price,
		Success:       r.Success,
		Reason:        r.Reason,
		CreatedAt:     r.SubmittedAt,
	}
	if b := rep.Buy; b != nil {
		score := b.Score
		e.Score = &score
		if e.Price == 0 {
			e.Price = b.Price
		}
	}
	if sl := rep.Sell; sl != nil {
		cost, high, drop, pl := sl.CostBasis, sl.Highest, sl.Drawdown, sl.PL
		e.CostBasis = &cost
		e.Highest = &high
		e.Drawdown = &drop
		e.PL = &pl
		e.ExitReason = string(sl.Reason)
		if e.Price == 0 {
			e.Price = sl.CurrentPrice
		}
	}
	return e
}

// Compile-time interface check.
var _ domain.ReportSink = (*StoreSink)(nil)
