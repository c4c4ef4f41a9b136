package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Event channels on the signal bus.
const (
	ChannelPrefix  = "congressbot:events:"
	ChannelPattern = ChannelPrefix + "*"
	RunStream      = "congressbot:runs"
)

// Event is the JSON envelope published for every report event.
type Event struct {
	Type  string    `json:"type"`
	RunID string    `json:"run_id"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data"`
}

// streamAppender is implemented by buses that keep a durable history.
type streamAppender interface {
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// BusSink is a domain.ReportSink that publishes run events on the signal bus
// for live dashboards. Run summaries are also appended to the run stream
// when the bus supports it.
type BusSink struct {
	bus domain.SignalBus
	now func() time.Time
}

// NewBusSink creates a BusSink.
func NewBusSink(bus domain.SignalBus) *BusSink {
	return &BusSink{bus: bus, now: time.Now}
}

// Name implements domain.ReportSink.
func (s *BusSink) Name() string { return "bus" }

// ScoredCandidates publishes the top candidates.
func (s *BusSink) ScoredCandidates(ctx context.Context, run domain.RunInfo, scored []domain.ScoredTransaction) error {
	type candidate struct {
		Ticker string `json:"ticker"`
		Score  int    `json:"score"`
		Actor  string `json:"representative,omitempty"`
	}
	top := scored
	if len(top) > 20 {
		top = top[:20]
	}
	data := make([]candidate, 0, len(top))
	for _, st := range top {
		data = append(data, candidate{Ticker: st.Ticker, Score: st.Score, Actor: st.ActorName})
	}
	_, err := s.publish(ctx, "scored", run.ID, map[string]any{"total": len(scored), "top": data})
	return err
}

// OrderPlaced publishes one order attempt.
func (s *BusSink) OrderPlaced(ctx context.Context, run domain.RunInfo, rep domain.OrderReport) error {
	_, err := s.publish(ctx, "order", run.ID, TradeLogEntry(run, rep))
	return err
}

// RunFinished publishes the run totals and appends them to the run stream.
func (s *BusSink) RunFinished(ctx context.Context, sum domain.RunSummary) error {
	payload, err := s.publish(ctx, "run_finished", sum.Run.ID, map[string]any{
		"started_at":  sum.Run.StartedAt,
		"finished_at": sum.FinishedAt,
		"trades_made": sum.TradesMade,
		"errors":      sum.Errors,
		"buys":        len(sum.Buy.Buys),
		"sells":       len(sum.Exit.Plan.Sells),
	})
	if err != nil {
		return err
	}
	if sa, ok := s.bus.(streamAppender); ok {
		return sa.StreamAppend(ctx, RunStream, payload)
	}
	return nil
}

func (s *BusSink) publish(ctx context.Context, typ, runID string, data any) ([]byte, error) {
	payload, err := json.Marshal(Event{Type: typ, RunID: runID, Time: s.now().UTC(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("bus sink: marshal %s: %w", typ, err)
	}
	if err := s.bus.Publish(ctx, ChannelPrefix+typ, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Compile-time interface check.
var _ domain.ReportSink = (*BusSink)(nil)
