// Package file keeps bot state on local disk: the watermark JSON document and
// the CSV sales log.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// entry is the per-symbol record on disk: {"AAPL": {"highest": 123.4}}.
type entry struct {
	Highest float64 `json:"highest"`
}

// EncodeState renders state in the on-disk document format.
func EncodeState(state domain.WatermarkState) ([]byte, error) {
	raw := make(map[string]entry, len(state))
	for sym, h := range state {
		raw[sym] = entry{Highest: h}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("file: encode watermarks: %w", err)
	}
	return data, nil
}

// DecodeState parses the on-disk document format. An empty document is an
// empty state; an unparseable one wraps domain.ErrCorruptState.
func DecodeState(data []byte) (domain.WatermarkState, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.WatermarkState{}, nil
	}
	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.WatermarkState{}, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}
	state := make(domain.WatermarkState, len(raw))
	for sym, e := range raw {
		state[sym] = e.Highest
	}
	return state, nil
}

// WatermarkStore keeps the watermark state in a single JSON file.
type WatermarkStore struct {
	path string
	mu   sync.Mutex
}

// NewWatermarkStore returns a store backed by the file at path.
func NewWatermarkStore(path string) *WatermarkStore {
	return &WatermarkStore{path: path}
}

// Path returns the backing file path.
func (s *WatermarkStore) Path() string { return s.path }

// Load reads the state file. A missing file yields an empty state. A file
// that cannot be parsed yields an empty state and an error wrapping
// domain.ErrCorruptState; any other read error is returned as is.
func (s *WatermarkStore) Load(_ context.Context) (domain.WatermarkState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.WatermarkState{}, nil
	}
	if err != nil {
		return domain.WatermarkState{}, fmt.Errorf("file: read %s: %w", s.path, err)
	}

	state, err := DecodeState(data)
	if err != nil {
		return domain.WatermarkState{}, fmt.Errorf("file: parse %s: %w", s.path, err)
	}
	return state, nil
}

// Save writes the state atomically: to a temp file in the same directory,
// then renamed over the target.
func (s *WatermarkStore) Save(_ context.Context, state domain.WatermarkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".watermarks-*.json")
	if err != nil {
		return fmt.Errorf("file: create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("file: rename to %s: %w", s.path, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.WatermarkStore = (*WatermarkStore)(nil)
