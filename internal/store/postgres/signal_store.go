package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// SignalStore implements domain.SignalStore on the politician_trades and
// buy_scores tables.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given connection pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// InsertDisclosures writes every scored disclosure of a run using a pgx
// batch. Size and excess return are NULL when the feed lacked the column.
func (s *SignalStore) InsertDisclosures(ctx context.Context, runID string, recs []domain.ScoredTransaction) error {
	if len(recs) == 0 {
		return nil
	}

	const query = `
		INSERT INTO politician_trades (
			run_id, ticker, raw_transaction, kind, trade_size, excess_return,
			representative, company, party, district, chamber,
			transacted_at, score
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13
		)`

	batch := &pgx.Batch{}
	for _, r := range recs {
		var size, excess *float64
		if r.HasTradeSize {
			v := r.TradeSize
			size = &v
		}
		if r.HasExcessReturn {
			v := r.ExcessReturn
			excess = &v
		}
		batch.Queue(query,
			runID, r.Ticker, r.RawTransaction, string(r.Kind), size, excess,
			r.ActorName, r.Company, r.Party, r.District, r.Chamber,
			r.TransactedAt, r.Score,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert disclosure batch item %d: %w", i, err)
		}
	}
	return nil
}

// InsertTickerScores writes the per-ticker aggregates of a run.
func (s *SignalStore) InsertTickerScores(ctx context.Context, runID string, scores []domain.TickerScore) error {
	if len(scores) == 0 {
		return nil
	}

	const query = `
		INSERT INTO buy_scores (run_id, ticker, score, reason, politician_count, last_trade_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, sc := range scores {
		batch.Queue(query, runID, sc.Ticker, sc.Score, sc.Reason, sc.PoliticianCount, sc.LastTradeDate, sc.CreatedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range scores {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert score batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListTickerScores returns score rows, newest first.
func (s *SignalStore) ListTickerScores(ctx context.Context, opts domain.ListOpts) ([]domain.TickerScore, error) {
	query, args := appendListOpts(
		`SELECT run_id, ticker, score, reason, politician_count, last_trade_date, created_at
		 FROM buy_scores WHERE 1=1`,
		nil, 1, "created_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scores: %w", err)
	}
	defer rows.Close()

	var out []domain.TickerScore
	for rows.Next() {
		var sc domain.TickerScore
		if err := rows.Scan(&sc.RunID, &sc.Ticker, &sc.Score, &sc.Reason,
			&sc.PoliticianCount, &sc.LastTradeDate, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan score: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list scores rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.SignalStore = (*SignalStore)(nil)
