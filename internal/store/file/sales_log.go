package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

var salesHeader = []string{
	"timestamp", "run_id", "order_id", "ticker", "qty", "sell_price",
	"cost_basis", "highest", "drop_pct", "pl_pct", "reason",
}

// SalesLog is a domain.ReportSink that appends every successful sell to a
// CSV file, writing the header when the file is new.
type SalesLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewSalesLog creates a SalesLog writing to path.
func NewSalesLog(path string) *SalesLog {
	return &SalesLog{path: path, now: time.Now}
}

// Name implements domain.ReportSink.
func (l *SalesLog) Name() string { return "sales_log" }

// ScoredCandidates is a no-op.
func (l *SalesLog) ScoredCandidates(context.Context, domain.RunInfo, []domain.ScoredTransaction) error {
	return nil
}

// RunFinished is a no-op.
func (l *SalesLog) RunFinished(context.Context, domain.RunSummary) error {
	return nil
}

// OrderPlaced appends one row for a filled or accepted sell. Buys and failed
// sells are ignored.
func (l *SalesLog) OrderPlaced(_ context.Context, run domain.RunInfo, rep domain.OrderReport) error {
	if rep.Sell == nil || !rep.Result.Success {
		return nil
	}
	s := rep.Sell
	price := rep.Result.Price
	if price == 0 {
		price = s.CurrentPrice
	}
	ts := rep.Result.SubmittedAt
	if ts.IsZero() {
		ts = l.now()
	}

	row := []string{
		ts.UTC().Format(time.RFC3339),
		run.ID,
		rep.Result.OrderID,
		s.Symbol,
		strconv.FormatInt(s.Quantity, 10),
		money(price),
		money(s.CostBasis),
		money(s.Highest),
		money(s.Drawdown * 100),
		money(s.PL * 100),
		string(s.Reason),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendRow(row)
}

func (l *SalesLog) appendRow(row []string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file: open sales log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("file: stat sales log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(salesHeader); err != nil {
			return fmt.Errorf("file: write sales log header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("file: write sales log: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("file: flush sales log: %w", err)
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Compile-time interface check.
var _ domain.ReportSink = (*SalesLog)(nil)
