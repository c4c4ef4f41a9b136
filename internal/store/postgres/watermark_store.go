package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// WatermarkStore implements domain.WatermarkStore on the watermarks table,
// one row per symbol.
type WatermarkStore struct {
	pool *pgxpool.Pool
}

// NewWatermarkStore creates a new WatermarkStore backed by the given
// connection pool.
func NewWatermarkStore(pool *pgxpool.Pool) *WatermarkStore {
	return &WatermarkStore{pool: pool}
}

// Load returns every stored watermark.
func (s *WatermarkStore) Load(ctx context.Context) (domain.WatermarkState, error) {
	rows, err := s.pool.Query(ctx, `SELECT symbol, highest FROM watermarks`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load watermarks: %w", err)
	}
	defer rows.Close()

	state := domain.WatermarkState{}
	for rows.Next() {
		var sym string
		var highest float64
		if err := rows.Scan(&sym, &highest); err != nil {
			return nil, fmt.Errorf("postgres: scan watermark: %w", err)
		}
		state[sym] = highest
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load watermarks rows: %w", err)
	}
	return state, nil
}

// Save upserts every entry of state in a single transaction. Rows for
// symbols absent from state are left as they are.
func (s *WatermarkStore) Save(ctx context.Context, state domain.WatermarkState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save watermarks: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO watermarks (symbol, highest, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (symbol) DO UPDATE SET highest = EXCLUDED.highest, updated_at = NOW()`
	for sym, highest := range state {
		if _, err := tx.Exec(ctx, query, sym, highest); err != nil {
			return fmt.Errorf("postgres: save watermark %s: %w", sym, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit watermarks: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.WatermarkStore = (*WatermarkStore)(nil)
