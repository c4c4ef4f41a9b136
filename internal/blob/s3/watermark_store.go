package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/store/file"
)

// WatermarkStore implements domain.WatermarkStore as one JSON object in a
// bucket, in the same document format as the local file store.
type WatermarkStore struct {
	reader domain.BlobReader
	writer domain.BlobWriter
	key    string
}

// NewWatermarkStore creates a WatermarkStore on the object at key.
func NewWatermarkStore(reader domain.BlobReader, writer domain.BlobWriter, key string) *WatermarkStore {
	return &WatermarkStore{reader: reader, writer: writer, key: key}
}

// Load fetches and parses the object. A missing object is an empty state; an
// unparseable one is an empty state plus an error wrapping
// domain.ErrCorruptState.
func (s *WatermarkStore) Load(ctx context.Context) (domain.WatermarkState, error) {
	body, err := s.reader.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.WatermarkState{}, nil
	}
	if err != nil {
		return domain.WatermarkState{}, fmt.Errorf("s3blob: load watermarks: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return domain.WatermarkState{}, fmt.Errorf("s3blob: read watermarks: %w", err)
	}
	state, err := file.DecodeState(data)
	if err != nil {
		return domain.WatermarkState{}, fmt.Errorf("s3blob: parse watermarks %s: %w", s.key, err)
	}
	return state, nil
}

// Save overwrites the object with state.
func (s *WatermarkStore) Save(ctx context.Context, state domain.WatermarkState) error {
	data, err := file.EncodeState(state)
	if err != nil {
		return err
	}
	if err := s.writer.Put(ctx, s.key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: save watermarks: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.WatermarkStore = (*WatermarkStore)(nil)
