// Package memory provides in-process store implementations for tests and
// dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// WatermarkStore keeps watermark state in memory. It is safe for concurrent
// use.
type WatermarkStore struct {
	mu    sync.Mutex
	state domain.WatermarkState
	saves int
}

// NewWatermarkStore returns a store seeded with a copy of initial.
func NewWatermarkStore(initial domain.WatermarkState) *WatermarkStore {
	return &WatermarkStore{state: initial.Clone()}
}

// Load returns a copy of the current state.
func (s *WatermarkStore) Load(_ context.Context) (domain.WatermarkState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

// Save replaces the current state with a copy of state.
func (s *WatermarkStore) Save(_ context.Context, state domain.WatermarkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *WatermarkStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Compile-time interface check.
var _ domain.WatermarkStore = (*WatermarkStore)(nil)
