package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// DefaultWatermarkKey is the hash holding symbol -> highest price.
const DefaultWatermarkKey = "congressbot:watermarks"

// WatermarkStore implements domain.WatermarkStore as a single Redis hash.
type WatermarkStore struct {
	rdb *redis.Client
	key string
}

// NewWatermarkStore creates a WatermarkStore on the hash at key. An empty key
// uses DefaultWatermarkKey.
func NewWatermarkStore(c *Client, key string) *WatermarkStore {
	if key == "" {
		key = DefaultWatermarkKey
	}
	return &WatermarkStore{rdb: c.Underlying(), key: key}
}

// Load returns every stored watermark. A missing hash is an empty state.
// Fields that do not parse as numbers are skipped.
func (s *WatermarkStore) Load(ctx context.Context) (domain.WatermarkState, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.WatermarkState{}, fmt.Errorf("redis: load watermarks: %w", err)
	}

	state := make(domain.WatermarkState, len(vals))
	for sym, raw := range vals {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		state[sym] = v
	}
	return state, nil
}

// Save upserts every entry of state into the hash.
func (s *WatermarkStore) Save(ctx context.Context, state domain.WatermarkState) error {
	if len(state) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(state))
	for sym, v := range state {
		fields[sym] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if err := s.rdb.HSet(ctx, s.key, fields).Err(); err != nil {
		return fmt.Errorf("redis: save watermarks: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.WatermarkStore = (*WatermarkStore)(nil)
