package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// setupTestRedis starts a Redis container and returns a connected Client. It
// skips under -short or when CONGRESSBOT_IT is unset.
func setupTestRedis(t *testing.T) *Client {
	t.Helper()

	if testing.Short() || os.Getenv("CONGRESSBOT_IT") == "" {
		t.Skip("integration test: set CONGRESSBOT_IT=1 to run against a redis container")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := New(ctx, ClientConfig{Addr: endpoint})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_Integration(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	t.Run("price cache", func(t *testing.T) {
		pc := NewPriceCache(client, time.Minute)

		_, _, err := pc.GetPrice(ctx, "AAPL")
		require.ErrorIs(t, err, domain.ErrNotFound)

		ts := time.Date(2025, 3, 31, 14, 0, 0, 0, time.UTC)
		require.NoError(t, pc.SetPrice(ctx, "AAPL", 187.25, ts))

		price, got, err := pc.GetPrice(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, 187.25, price)
		assert.True(t, ts.Equal(got))

		ttl, err := client.Underlying().TTL(ctx, priceKey("AAPL")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("lock", func(t *testing.T) {
		lm := NewLockManager(client)

		unlock, err := lm.Acquire(ctx, "run", time.Minute)
		require.NoError(t, err)

		_, err = lm.Acquire(ctx, "run", time.Minute)
		require.True(t, errors.Is(err, domain.ErrLockHeld))

		unlock()
		unlock()

		unlock2, err := lm.Acquire(ctx, "run", time.Minute)
		require.NoError(t, err)
		unlock2()
	})

	t.Run("watermarks", func(t *testing.T) {
		ws := NewWatermarkStore(client, "test:watermarks")

		state, err := ws.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, state)

		require.NoError(t, ws.Save(ctx, domain.WatermarkState{"AAPL": 110, "MSFT": 300.5}))
		require.NoError(t, ws.Save(ctx, domain.WatermarkState{"AAPL": 120}))

		state, err = ws.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.WatermarkState{"AAPL": 120, "MSFT": 300.5}, state)
	})

	t.Run("rate limiter", func(t *testing.T) {
		rl := NewRateLimiter(client)
		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, "client-a", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "request %d", i)
		}
		ok, err := rl.Allow(ctx, "client-a", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = rl.Allow(ctx, "client-b", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("signal bus", func(t *testing.T) {
		bus := NewSignalBus(client)
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, err := bus.Subscribe(subCtx, "congressbot:events:*")
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, "congressbot:events:run_finished", []byte(`{"run":"r1"}`)))

		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"run":"r1"}`, string(msg))
		case <-time.After(5 * time.Second):
			t.Fatal("no message received")
		}

		require.NoError(t, bus.StreamAppend(ctx, "congressbot:runs", []byte(`{}`)))
		n, err := client.Underlying().XLen(ctx, "congressbot:runs").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
