package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// maxRuns bounds the in-memory run history.
const maxRuns = 500

// RunStore keeps recent run records in memory for deployments without a
// database.
type RunStore struct {
	mu   sync.Mutex
	runs []domain.RunRecord
}

// NewRunStore creates an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// Start records a new run. Starting an existing id is a no-op.
func (s *RunStore) Start(_ context.Context, run domain.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == run.ID {
			return nil
		}
	}
	s.runs = append(s.runs, domain.RunRecord{ID: run.ID, StartedAt: run.StartedAt})
	if len(s.runs) > maxRuns {
		s.runs = s.runs[len(s.runs)-maxRuns:]
	}
	return nil
}

// Finish closes a run.
func (s *RunStore) Finish(_ context.Context, id string, finishedAt time.Time, tradesMade, errs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == id {
			f := finishedAt
			s.runs[i].FinishedAt = &f
			s.runs[i].TradesMade = tradesMade
			s.runs[i].Errors = errs
			return nil
		}
	}
	return fmt.Errorf("memory: finish run %s: %w", id, domain.ErrNotFound)
}

// ListRecent returns runs newest first, honouring the list options.
func (s *RunStore) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.RunRecord
	for _, r := range s.runs {
		if opts.Since != nil && r.StartedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && !r.StartedAt.Before(*opts.Until) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
