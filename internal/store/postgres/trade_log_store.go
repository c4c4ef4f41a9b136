package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// TradeLogStore implements domain.TradeLogStore on the bot_trades table.
type TradeLogStore struct {
	pool *pgxpool.Pool
}

// NewTradeLogStore creates a new TradeLogStore backed by the given connection
// pool.
func NewTradeLogStore(pool *pgxpool.Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Insert records an order attempt. Rows for an order id already logged are
// silently skipped; attempts without a broker order id are always kept.
func (s *TradeLogStore) Insert(ctx context.Context, e domain.TradeLogEntry) error {
	const query = `
		INSERT INTO bot_trades (
			run_id, order_id, client_order_id, symbol, side, qty, price,
			success, reason, score, cost_basis, highest, drawdown, pl,
			exit_reason, created_at
		) VALUES (
			$1, NULLIF($2, ''), $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16
		) ON CONFLICT (order_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		e.RunID, e.OrderID, e.ClientOrderID, e.Symbol, string(e.Side), e.Quantity, e.Price,
		e.Success, e.Reason, e.Score, e.CostBasis, e.Highest, e.Drawdown, e.PL,
		e.ExitReason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert bot trade %s %s: %w", e.Side, e.Symbol, err)
	}
	return nil
}

// List returns logged orders, newest first. An empty side lists both.
func (s *TradeLogStore) List(ctx context.Context, side domain.OrderSide, opts domain.ListOpts) ([]domain.TradeLogEntry, error) {
	query := `SELECT run_id, COALESCE(order_id, ''), client_order_id, symbol, side, qty, price,
		success, reason, score, cost_basis, highest, drawdown, pl, exit_reason, created_at
		FROM bot_trades WHERE 1=1`
	var args []any
	next := 1
	if side != "" {
		query += fmt.Sprintf(" AND side = $%d", next)
		args = append(args, string(side))
		next++
	}
	query, args = appendListOpts(query, args, next, "created_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bot trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeLogEntry
	for rows.Next() {
		var e domain.TradeLogEntry
		var sideStr string
		if err := rows.Scan(&e.RunID, &e.OrderID, &e.ClientOrderID, &e.Symbol, &sideStr,
			&e.Quantity, &e.Price, &e.Success, &e.Reason, &e.Score,
			&e.CostBasis, &e.Highest, &e.Drawdown, &e.PL, &e.ExitReason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan bot trade: %w", err)
		}
		e.Side = domain.OrderSide(sideStr)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bot trades rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.TradeLogStore = (*TradeLogStore)(nil)
