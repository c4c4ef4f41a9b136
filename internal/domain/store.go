package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// WatermarkStore persists the per-symbol highest-price state across runs.
// Load must return an empty state, not an error, when the store is missing.
type WatermarkStore interface {
	Load(ctx context.Context) (WatermarkState, error)
	Save(ctx context.Context, state WatermarkState) error
}

// RunStore persists run bookkeeping rows.
type RunStore interface {
	Start(ctx context.Context, run RunInfo) error
	Finish(ctx context.Context, id string, finishedAt time.Time, tradesMade, errs int) error
	ListRecent(ctx context.Context, opts ListOpts) ([]RunRecord, error)
}

// TickerScore is the per-symbol aggregate of one run's scored disclosures.
type TickerScore struct {
	RunID           string     `json:"run_id"`
	Ticker          string     `json:"ticker"`
	Score           int        `json:"score"`
	Reason          string     `json:"reason"`
	PoliticianCount int        `json:"politician_count"`
	LastTradeDate   *time.Time `json:"last_trade_date"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SignalStore persists scored disclosures and their per-ticker aggregates.
type SignalStore interface {
	InsertDisclosures(ctx context.Context, runID string, recs []ScoredTransaction) error
	InsertTickerScores(ctx context.Context, runID string, scores []TickerScore) error
	ListTickerScores(ctx context.Context, opts ListOpts) ([]TickerScore, error)
}

// TradeLogEntry is one submitted (or attempted) order as written to the
// trade log.
type TradeLogEntry struct {
	RunID         string    `json:"run_id"`
	OrderID       string    `json:"order_id,omitempty"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	Quantity      int64     `json:"qty"`
	Price         float64   `json:"price"`
	Success       bool      `json:"success"`
	Reason        string    `json:"reason,omitempty"`
	Score         *int      `json:"score,omitempty"`
	CostBasis     *float64  `json:"cost_basis,omitempty"`
	Highest       *float64  `json:"highest,omitempty"`
	Drawdown      *float64  `json:"drop,omitempty"`
	PL            *float64  `json:"pl,omitempty"`
	ExitReason    string    `json:"exit_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TradeLogStore persists the bot's own orders.
type TradeLogStore interface {
	Insert(ctx context.Context, entry TradeLogEntry) error
	List(ctx context.Context, side OrderSide, opts ListOpts) ([]TradeLogEntry, error)
}

// PortfolioStore records position snapshots and account value history.
type PortfolioStore interface {
	RecordPositions(ctx context.Context, runID string, positions []Position) error
	RecordValue(ctx context.Context, runID string, value float64) error
	LatestPositions(ctx context.Context) ([]Position, error)
}

// AuditEntry is a single bot log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only bot event log.
type AuditStore interface {
	Log(ctx context.Context, level, message string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// ReportSink receives post-hoc records of a run. Sinks are fire-and-forget:
// their errors are logged by the caller and never change trading decisions.
type ReportSink interface {
	Name() string
	ScoredCandidates(ctx context.Context, run RunInfo, scored []ScoredTransaction) error
	OrderPlaced(ctx context.Context, run RunInfo, rep OrderReport) error
	RunFinished(ctx context.Context, summary RunSummary) error
}
