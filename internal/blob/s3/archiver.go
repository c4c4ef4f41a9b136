package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// RunArchiver is a domain.ReportSink that uploads one JSONL snapshot per run
// to object storage at {prefix}/YYYY/MM/DD/{run_id}.jsonl.
type RunArchiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
}

// NewRunArchiver creates a RunArchiver. reader may be nil, in which case
// Snapshots is unavailable.
func NewRunArchiver(writer domain.BlobWriter, reader domain.BlobReader, prefix string) *RunArchiver {
	return &RunArchiver{
		writer: writer,
		reader: reader,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Name implements domain.ReportSink.
func (a *RunArchiver) Name() string { return "s3_archive" }

// ScoredCandidates is a no-op; candidates are archived with the run summary.
func (a *RunArchiver) ScoredCandidates(context.Context, domain.RunInfo, []domain.ScoredTransaction) error {
	return nil
}

// OrderPlaced is a no-op; orders are archived with the run summary.
func (a *RunArchiver) OrderPlaced(context.Context, domain.RunInfo, domain.OrderReport) error {
	return nil
}

// RunFinished writes the snapshot of the whole run.
func (a *RunArchiver) RunFinished(ctx context.Context, summary domain.RunSummary) error {
	buf, err := marshalJSONL(snapshotLines(summary))
	if err != nil {
		return fmt.Errorf("s3blob: archive run %s: %w", summary.Run.ID, err)
	}

	key := a.SnapshotPath(summary.Run)
	if int64(len(buf)) > minPartSize {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return fmt.Errorf("s3blob: archive run %s: %w", summary.Run.ID, err)
	}
	return nil
}

// SnapshotPath returns the object key for a run's snapshot.
func (a *RunArchiver) SnapshotPath(run domain.RunInfo) string {
	return path.Join(a.prefix, run.StartedAt.UTC().Format("2006/01/02"), run.ID+".jsonl")
}

// Snapshots lists archived run snapshots.
func (a *RunArchiver) Snapshots(ctx context.Context) ([]domain.BlobInfo, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: list snapshots: %w", domain.ErrNotFound)
	}
	prefix := a.prefix
	if prefix != "" {
		prefix += "/"
	}
	infos, err := a.reader.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("s3blob: list snapshots: %w", err)
	}
	return infos, nil
}

// snapshotLine is one JSONL record. Kind selects the shape of Data.
type snapshotLine struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

type runLine struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Retained   int       `json:"retained"`
	TradesMade int       `json:"trades_made"`
	Errors     int       `json:"errors"`
	BuyFatal   string    `json:"buy_fatal,omitempty"`
	ExitErrors []string  `json:"exit_errors,omitempty"`
	Policy     string    `json:"policy"`
}

type scoredLine struct {
	Ticker       string    `json:"ticker"`
	Kind         string    `json:"transaction"`
	Actor        string    `json:"representative"`
	TradeSize    float64   `json:"trade_size"`
	ExcessReturn float64   `json:"excess_return"`
	TransactedAt time.Time `json:"traded_at"`
	Score        int       `json:"score"`
}

type skippedLine struct {
	Ticker string `json:"ticker"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type orderLine struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Quantity      int64     `json:"qty"`
	Price         float64   `json:"price,omitempty"`
	Success       bool      `json:"success"`
	OrderID       string    `json:"order_id,omitempty"`
	ClientOrderID string    `json:"client_order_id"`
	Reason        string    `json:"reason,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type evaluationLine struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"qty"`
	CurrentPrice float64 `json:"current_price"`
	CostBasis    float64 `json:"cost_basis"`
	Highest      float64 `json:"highest"`
	Drawdown     float64 `json:"drop"`
	PL           float64 `json:"pl"`
	Action       string  `json:"action"`
	Reason       string  `json:"reason,omitempty"`
}

func snapshotLines(s domain.RunSummary) []snapshotLine {
	head := runLine{
		RunID:      s.Run.ID,
		StartedAt:  s.Run.StartedAt.UTC(),
		FinishedAt: s.FinishedAt.UTC(),
		Fetched:    s.Buy.Fetched,
		Retained:   s.Buy.Retained,
		TradesMade: s.TradesMade,
		Errors:     s.Errors,
		ExitErrors: s.Exit.Errors,
		Policy:     s.Exit.Plan.Policy,
	}
	if s.Buy.Fatal != nil {
		head.BuyFatal = s.Buy.Fatal.Error()
	}

	lines := []snapshotLine{{Kind: "run", Data: head}}
	for _, st := range s.Buy.Scored {
		lines = append(lines, snapshotLine{Kind: "scored", Data: scoredLine{
			Ticker:       st.Ticker,
			Kind:         string(st.Kind),
			Actor:        st.ActorName,
			TradeSize:    st.TradeSize,
			ExcessReturn: st.ExcessReturn,
			TransactedAt: st.TransactedAt.UTC(),
			Score:        st.Score,
		}})
	}
	for _, sk := range s.Buy.Skipped {
		lines = append(lines, snapshotLine{Kind: "skipped", Data: skippedLine{
			Ticker: sk.Ticker,
			Score:  sk.Score,
			Reason: string(sk.Reason),
			Detail: sk.Detail,
		}})
	}
	for _, o := range append(append([]domain.OrderResult(nil), s.Buy.Orders...), s.Exit.Orders...) {
		lines = append(lines, snapshotLine{Kind: "order", Data: orderLine{
			Symbol:        o.Symbol,
			Side:          string(o.Side),
			Quantity:      o.Quantity,
			Price:         o.Price,
			Success:       o.Success,
			OrderID:       o.OrderID,
			ClientOrderID: o.ClientOrderID,
			Reason:        o.Reason,
			SubmittedAt:   o.SubmittedAt.UTC(),
		}})
	}
	for _, d := range s.Exit.Plan.Decisions {
		e := d.Evaluation
		lines = append(lines, snapshotLine{Kind: "evaluation", Data: evaluationLine{
			Symbol:       e.Symbol,
			Quantity:     e.Quantity,
			CurrentPrice: e.CurrentPrice,
			CostBasis:    e.CostBasis,
			Highest:      e.Highest,
			Drawdown:     e.Drawdown,
			PL:           e.PL,
			Action:       string(d.Action),
			Reason:       string(d.Reason),
		}})
	}
	return lines
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.ReportSink = (*RunArchiver)(nil)
