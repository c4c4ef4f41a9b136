package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// AuditStore implements domain.AuditStore on the bot_logs table.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log appends a bot log row. The detail map is stored as JSONB.
func (s *AuditStore) Log(ctx context.Context, level, message string, detail map[string]any) error {
	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("postgres: marshal bot log context: %w", err)
		}
	}

	const query = `INSERT INTO bot_logs (level, message, context) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, level, message, detailJSON); err != nil {
		return fmt.Errorf("postgres: insert bot log %q: %w", message, err)
	}
	return nil
}

// List returns bot log rows, newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query, args := appendListOpts(
		`SELECT id, level, message, context, created_at FROM bot_logs WHERE 1=1`,
		nil, 1, "created_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bot logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detailJSON []byte
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan bot log: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal bot log context: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bot logs rows: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.AuditStore = (*AuditStore)(nil)
