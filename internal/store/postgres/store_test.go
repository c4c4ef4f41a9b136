package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/bot?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "bot"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
}

func TestStores_Integration(t *testing.T) {
	client := setupTestDB(t)
	ctx := context.Background()
	pool := client.Pool()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("runs", func(t *testing.T) {
		runs := NewRunStore(pool)
		require.NoError(t, runs.Start(ctx, domain.RunInfo{ID: "r1", StartedAt: now}))
		require.NoError(t, runs.Finish(ctx, "r1", now.Add(time.Minute), 3, 1))
		require.ErrorIs(t, runs.Finish(ctx, "missing", now, 0, 0), domain.ErrNotFound)

		list, err := runs.ListRecent(ctx, domain.ListOpts{Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 3, list[0].TradesMade)
		require.NotNil(t, list[0].FinishedAt)
	})

	t.Run("watermarks", func(t *testing.T) {
		wm := NewWatermarkStore(pool)
		state, err := wm.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, state)

		require.NoError(t, wm.Save(ctx, domain.WatermarkState{"AAPL": 110, "MSFT": 300}))
		require.NoError(t, wm.Save(ctx, domain.WatermarkState{"AAPL": 120}))

		state, err = wm.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.WatermarkState{"AAPL": 120, "MSFT": 300}, state)
	})

	t.Run("trade log dedupes on order id", func(t *testing.T) {
		trades := NewTradeLogStore(pool)
		entry := domain.TradeLogEntry{
			RunID: "r1", OrderID: "o-1", ClientOrderID: "c-1", Symbol: "AAPL",
			Side: domain.OrderSideBuy, Quantity: 4, Price: 12.5, Success: true,
			Score: ptr(8), CreatedAt: now,
		}
		require.NoError(t, trades.Insert(ctx, entry))
		require.NoError(t, trades.Insert(ctx, entry))

		failed := entry
		failed.OrderID = ""
		failed.Success = false
		failed.Reason = "rejected"
		require.NoError(t, trades.Insert(ctx, failed))
		require.NoError(t, trades.Insert(ctx, failed))

		sell := domain.TradeLogEntry{
			RunID: "r1", OrderID: "o-2", Symbol: "MSFT", Side: domain.OrderSideSell, Quantity: 2,
			Success: true, CostBasis: ptr(100.0), Highest: ptr(110.0), Drawdown: ptr(0.18),
			PL: ptr(-0.1), ExitReason: "trailing_stop", CreatedAt: now,
		}
		require.NoError(t, trades.Insert(ctx, sell))

		buys, err := trades.List(ctx, domain.OrderSideBuy, domain.ListOpts{})
		require.NoError(t, err)
		assert.Len(t, buys, 3)

		sells, err := trades.List(ctx, domain.OrderSideSell, domain.ListOpts{Limit: 5})
		require.NoError(t, err)
		require.Len(t, sells, 1)
		assert.Equal(t, "trailing_stop", sells[0].ExitReason)
		require.NotNil(t, sells[0].PL)
		assert.InDelta(t, -0.1, *sells[0].PL, 1e-9)
		assert.Nil(t, sells[0].Score)
	})

	t.Run("signals", func(t *testing.T) {
		signals := NewSignalStore(pool)
		recs := []domain.ScoredTransaction{{
			TransactionRecord: domain.TransactionRecord{
				Ticker: "AAPL", Kind: domain.TransactionBuy, RawTransaction: "Purchase",
				TradeSize: 150000, HasTradeSize: true, TransactedAt: now, ActorName: "Jane Doe",
			},
			Score: 8,
		}}
		require.NoError(t, signals.InsertDisclosures(ctx, "r1", recs))
		require.NoError(t, signals.InsertTickerScores(ctx, "r1", []domain.TickerScore{{
			RunID: "r1", Ticker: "AAPL", Score: 8, Reason: "size=+3", PoliticianCount: 1,
			LastTradeDate: &now, CreatedAt: now,
		}}))

		scores, err := signals.ListTickerScores(ctx, domain.ListOpts{Limit: 10})
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, 8, scores[0].Score)
	})

	t.Run("portfolio", func(t *testing.T) {
		pf := NewPortfolioStore(pool)
		require.NoError(t, pf.RecordPositions(ctx, "r1", []domain.Position{{Symbol: "OLD", Quantity: 1, CurrentPrice: 1}}))
		require.NoError(t, pf.RecordPositions(ctx, "r2", []domain.Position{
			{Symbol: "MSFT", Quantity: 2, AvgEntryPrice: 100, CurrentPrice: 90},
			{Symbol: "AAPL", Quantity: 4, AvgEntryPrice: 12, CurrentPrice: 13},
		}))
		require.NoError(t, pf.RecordValue(ctx, "r2", 1234.5))

		latest, err := pf.LatestPositions(ctx)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, "AAPL", latest[0].Symbol)
	})

	t.Run("audit", func(t *testing.T) {
		audit := NewAuditStore(pool)
		require.NoError(t, audit.Log(ctx, "error", "buy failed", map[string]any{"symbol": "AAPL"}))
		entries, err := audit.List(ctx, domain.ListOpts{Limit: 1})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "AAPL", entries[0].Detail["symbol"])
	})
}
