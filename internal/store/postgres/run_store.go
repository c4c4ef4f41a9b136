package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// RunStore implements domain.RunStore on the bot_runs table.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Start opens the bookkeeping row for a run.
func (s *RunStore) Start(ctx context.Context, run domain.RunInfo) error {
	const query = `INSERT INTO bot_runs (id, started_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, run.ID, run.StartedAt); err != nil {
		return fmt.Errorf("postgres: start run %s: %w", run.ID, err)
	}
	return nil
}

// Finish closes a run with its trade and error counts. It returns
// domain.ErrNotFound when the run was never started.
func (s *RunStore) Finish(ctx context.Context, id string, finishedAt time.Time, tradesMade, errs int) error {
	const query = `
		UPDATE bot_runs
		SET finished_at = $2, trades_made = $3, errors = $4
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, finishedAt, tradesMade, errs)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: finish run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns runs, newest first.
func (s *RunStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.RunRecord, error) {
	query, args := appendListOpts(
		`SELECT id, started_at, finished_at, trades_made, errors FROM bot_runs WHERE 1=1`,
		nil, 1, "started_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.TradesMade, &r.Errors); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return runs, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
