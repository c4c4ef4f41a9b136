package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/signal"
)

func bulkRecord(ticker, tx string) domain.RawRecord {
	return domain.RawRecord{
		"Ticker":         ticker,
		"Transaction":    tx,
		"Traded":         "2025-03-30",
		"Trade_Size_USD": 500000.0,
		"excess_return":  0.1,
		"Name":           "Jane Doe",
	}
}

func newBuyService(feed domain.FeedSource, broker domain.Broker, prices domain.PriceSource, sink *recordingSink) *BuyService {
	sel := signal.NewSelector(signal.SelectorConfig{Threshold: 6, Budget: 50, Concurrency: 1}, prices)
	s := NewBuyService(feed, signal.CanonicalScorer{}, sel, broker, NewReporter(discardLogger(), sink), discardLogger())
	s.now = func() time.Time { return testNow }
	return s
}

func TestBuyService_IsolatesOrderFailures(t *testing.T) {
	feed := &fakeFeed{records: []domain.RawRecord{
		bulkRecord("NVDA", "Purchase"),
		bulkRecord("AAPL", "Purchase"),
		bulkRecord("MSFT", "Purchase"),
		bulkRecord("TSLA", "Sale"),
		bulkRecord("NVDA", "Purchase"),
	}}
	broker := &fakeBroker{
		positions:   []domain.Position{{Symbol: "aapl", Quantity: 3}},
		failSymbols: map[string]bool{"NVDA": true},
	}
	prices := fakePrices{"NVDA": 100, "MSFT": 12.5}
	sink := &recordingSink{}

	rep := newBuyService(feed, broker, prices, sink).Run(context.Background(), domain.RunInfo{ID: "r1"})

	require.NoError(t, rep.Fatal)
	assert.Equal(t, 5, rep.Fetched)
	assert.Equal(t, 5, rep.Retained)
	assert.Equal(t, 5, sink.scored)

	assert.Equal(t, []string{"buy:NVDA", "buy:MSFT"}, broker.symbols(), "a failed order does not stop later ones")
	require.Len(t, rep.Orders, 2)
	assert.False(t, rep.Orders[0].Success)
	assert.Contains(t, rep.Orders[0].Reason, "broker rejected NVDA")
	assert.Equal(t, int64(1), rep.Orders[0].Quantity, "budget below price still buys one share")
	assert.True(t, rep.Orders[1].Success)
	assert.Equal(t, int64(4), rep.Orders[1].Quantity)

	reasons := map[string]domain.SkipReason{}
	for _, sk := range rep.Skipped {
		reasons[sk.Ticker] = sk.Reason
	}
	assert.Equal(t, domain.SkipAlreadyHeld, reasons["AAPL"])
	assert.Equal(t, domain.SkipDuplicate, reasons["NVDA"])

	require.Len(t, sink.orders, 2)
	require.NotNil(t, sink.orders[1].Buy)
	assert.Equal(t, 8, sink.orders[1].Buy.Score)
}

func TestBuyService_FatalErrors(t *testing.T) {
	t.Run("feed unavailable", func(t *testing.T) {
		broker := &fakeBroker{}
		rep := newBuyService(&fakeFeed{err: errors.New("502")}, broker, fakePrices{}, &recordingSink{}).
			Run(context.Background(), domain.RunInfo{ID: "r1"})
		require.Error(t, rep.Fatal)
		assert.Empty(t, broker.symbols())
	})

	t.Run("missing date column", func(t *testing.T) {
		feed := &fakeFeed{records: []domain.RawRecord{{"Ticker": "AAPL"}}}
		rep := newBuyService(feed, &fakeBroker{}, fakePrices{}, &recordingSink{}).
			Run(context.Background(), domain.RunInfo{ID: "r1"})
		require.ErrorIs(t, rep.Fatal, domain.ErrMissingDateColumn)
	})

	t.Run("held positions unavailable", func(t *testing.T) {
		broker := &fakeBroker{positionErr: errors.New("401")}
		feed := &fakeFeed{records: []domain.RawRecord{bulkRecord("NVDA", "Purchase")}}
		rep := newBuyService(feed, broker, fakePrices{"NVDA": 10}, &recordingSink{}).
			Run(context.Background(), domain.RunInfo{ID: "r1"})
		require.Error(t, rep.Fatal)
		assert.Len(t, rep.Scored, 1)
		assert.Empty(t, broker.symbols(), "no buys without the held set")
	})
}

func TestBuyService_EmptyFeed(t *testing.T) {
	broker := &fakeBroker{}
	rep := newBuyService(&fakeFeed{}, broker, fakePrices{}, &recordingSink{}).
		Run(context.Background(), domain.RunInfo{ID: "r1"})
	require.NoError(t, rep.Fatal)
	assert.Empty(t, rep.Buys)
	assert.Empty(t, broker.symbols())
}
