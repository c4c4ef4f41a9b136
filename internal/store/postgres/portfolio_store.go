package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// PortfolioStore implements domain.PortfolioStore on the positions and
// portfolio_history tables.
type PortfolioStore struct {
	pool *pgxpool.Pool
}

// NewPortfolioStore creates a new PortfolioStore backed by the given
// connection pool.
func NewPortfolioStore(pool *pgxpool.Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// RecordPositions writes a snapshot of the broker positions seen in a run.
func (s *PortfolioStore) RecordPositions(ctx context.Context, runID string, positions []domain.Position) error {
	if len(positions) == 0 {
		return nil
	}

	const query = `
		INSERT INTO positions (run_id, symbol, qty, avg_entry_price, current_price)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(query, runID, p.Symbol, p.Quantity, p.AvgEntryPrice, p.CurrentPrice)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range positions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert position batch item %d: %w", i, err)
		}
	}
	return nil
}

// RecordValue appends a portfolio value sample.
func (s *PortfolioStore) RecordValue(ctx context.Context, runID string, value float64) error {
	const query = `INSERT INTO portfolio_history (run_id, value) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, query, runID, value); err != nil {
		return fmt.Errorf("postgres: insert portfolio value: %w", err)
	}
	return nil
}

// LatestPositions returns the most recent position snapshot.
func (s *PortfolioStore) LatestPositions(ctx context.Context) ([]domain.Position, error) {
	const query = `
		SELECT symbol, qty, avg_entry_price, current_price
		FROM positions
		WHERE run_id = (SELECT run_id FROM positions ORDER BY recorded_at DESC, id DESC LIMIT 1)
		ORDER BY symbol`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AvgEntryPrice, &p.CurrentPrice); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: latest positions rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.PortfolioStore = (*PortfolioStore)(nil)
