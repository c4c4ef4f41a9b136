package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Sink adapts a Notifier to domain.ReportSink.
type Sink struct {
	n *Notifier
}

// NewSink wraps n as a report sink.
func NewSink(n *Notifier) *Sink {
	return &Sink{n: n}
}

// Name implements domain.ReportSink.
func (s *Sink) Name() string { return "notify" }

// ScoredCandidates is not announced.
func (s *Sink) ScoredCandidates(context.Context, domain.RunInfo, []domain.ScoredTransaction) error {
	return nil
}

// OrderPlaced announces sells as a sales-log line, failed orders as
// order_failed and filled buys as order_placed.
func (s *Sink) OrderPlaced(ctx context.Context, run domain.RunInfo, rep domain.OrderReport) error {
	r := rep.Result
	switch {
	case !r.Success:
		return s.n.Notify(ctx, EventOrderFailed,
			fmt.Sprintf("Order failed: %s %s", strings.ToUpper(string(r.Side)), r.Symbol),
			fmt.Sprintf("qty %d, reason: %s (run %s)", r.Quantity, r.Reason, run.ID))
	case rep.Sell != nil:
		return s.n.Notify(ctx, EventSell, "Sold "+r.Symbol, SalesLine(*rep.Sell))
	default:
		return s.n.Notify(ctx, EventOrderPlaced, "Bought "+r.Symbol,
			fmt.Sprintf("qty %d, order %s (run %s)", r.Quantity, r.OrderID, run.ID))
	}
}

// RunFinished announces the run summary, and a separate error alert when the
// run recorded failures.
func (s *Sink) RunFinished(ctx context.Context, sum domain.RunSummary) error {
	var errs []string
	if err := s.n.Notify(ctx, EventRunFinished, "Run finished", SummaryText(sum)); err != nil {
		errs = append(errs, err.Error())
	}

	if problems := runProblems(sum); len(problems) > 0 {
		if err := s.n.Notify(ctx, EventError, "Run errors", strings.Join(problems, "\n")); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: run finished: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SalesLine renders a sell in the sales-log narrative: ticker, qty, sell
// price, cost basis, highest, drop and P/L percentages, reason.
func SalesLine(s domain.SellInstruction) string {
	return fmt.Sprintf("%s qty %d @ %.2f (cost %.2f, high %.2f, drop %.2f%%, P/L %.2f%%) reason: %s",
		s.Symbol, s.Quantity, s.CurrentPrice, s.CostBasis, s.Highest,
		s.Drawdown*100, s.PL*100, s.Reason)
}

// SummaryText renders the run summary body.
func SummaryText(sum domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", sum.Run.ID)
	fmt.Fprintf(&b, "disclosures: %d fetched, %d in window\n", sum.Buy.Fetched, sum.Buy.Retained)
	fmt.Fprintf(&b, "buys: %d planned, %d skipped\n", len(sum.Buy.Buys), len(sum.Buy.Skipped))
	fmt.Fprintf(&b, "positions: %d evaluated, %d sells, %d deferred\n",
		len(sum.Exit.Evaluations), len(sum.Exit.Plan.Sells), len(sum.Exit.Plan.Deferred))
	fmt.Fprintf(&b, "trades made: %d, errors: %d", sum.TradesMade, sum.Errors)
	return b.String()
}

func runProblems(sum domain.RunSummary) []string {
	var out []string
	if sum.Buy.Fatal != nil {
		out = append(out, "buy phase: "+sum.Buy.Fatal.Error())
	}
	out = append(out, sum.Exit.Errors...)
	return out
}

// Compile-time interface check.
var _ domain.ReportSink = (*Sink)(nil)
