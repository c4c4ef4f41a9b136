package signal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
	calls  []string
}

func (f *fakePrices) LatestPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return 0, err
	}
	return f.prices[symbol], nil
}

func scored(ticker string, score int) domain.ScoredTransaction {
	return domain.ScoredTransaction{
		TransactionRecord: domain.TransactionRecord{Ticker: ticker, Kind: domain.TransactionBuy},
		Score:             score,
	}
}

func TestQuantity(t *testing.T) {
	assert.Equal(t, int64(4), Quantity(50, 12.5))
	assert.Equal(t, int64(1), Quantity(50, 400))
	assert.Equal(t, int64(50), Quantity(50, 1))
	assert.Equal(t, int64(3), Quantity(50, 16.66))
}

func TestSelect_SizesAndOrders(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"AAPL": 12.5, "NVDA": 400, "MSFT": 20}}
	sel := NewSelector(SelectorConfig{Threshold: 6, Budget: 50}, prices)

	ranked := []domain.ScoredTransaction{
		scored("AAPL", 8),
		scored("NVDA", 7),
		scored("MSFT", 6),
		scored("TSLA", 5),
	}
	out := sel.Select(context.Background(), ranked, nil)

	require.Len(t, out.Buys, 3)
	assert.Equal(t, "AAPL", out.Buys[0].Symbol)
	assert.Equal(t, int64(4), out.Buys[0].Quantity)
	assert.Equal(t, "NVDA", out.Buys[1].Symbol)
	assert.Equal(t, int64(1), out.Buys[1].Quantity)
	assert.Equal(t, "MSFT", out.Buys[2].Symbol)
	assert.Equal(t, int64(2), out.Buys[2].Quantity)
	assert.Empty(t, out.Skipped)
	assert.NotContains(t, prices.calls, "TSLA", "below-threshold candidates are never priced")
}

func TestSelect_SkipsHeldDuplicateAndInvalid(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"AAPL": 10, "MSFT": 10}}
	sel := NewSelector(SelectorConfig{Threshold: 6}, prices)

	ranked := []domain.ScoredTransaction{
		scored("AAPL", 8),
		scored(" aapl", 8),
		scored("--", 7),
		scored("", 7),
		scored("MSFT", 7),
	}
	held := HeldSymbols([]domain.Position{{Symbol: "msft", Quantity: 3}})
	out := sel.Select(context.Background(), ranked, held)

	require.Len(t, out.Buys, 1)
	assert.Equal(t, "AAPL", out.Buys[0].Symbol)

	reasons := map[domain.SkipReason]int{}
	for _, s := range out.Skipped {
		reasons[s.Reason]++
	}
	assert.Equal(t, 1, reasons[domain.SkipDuplicate])
	assert.Equal(t, 2, reasons[domain.SkipInvalidTicker])
	assert.Equal(t, 1, reasons[domain.SkipAlreadyHeld])
}

func TestSelect_PriceFailureIsolated(t *testing.T) {
	prices := &fakePrices{
		prices: map[string]float64{"AAPL": 10, "ZERO": 0},
		errs:   map[string]error{"BAD": errors.New("quote: 404")},
	}
	sel := NewSelector(SelectorConfig{Threshold: 6, Concurrency: 1}, prices)

	ranked := []domain.ScoredTransaction{
		scored("BAD", 9),
		scored("ZERO", 8),
		scored("AAPL", 7),
	}
	out := sel.Select(context.Background(), ranked, map[string]bool{})

	require.Len(t, out.Buys, 1)
	assert.Equal(t, "AAPL", out.Buys[0].Symbol)
	assert.Equal(t, int64(5), out.Buys[0].Quantity)

	require.Len(t, out.Skipped, 2)
	assert.Equal(t, "BAD", out.Skipped[0].Ticker)
	assert.Equal(t, domain.SkipPriceUnavailable, out.Skipped[0].Reason)
	assert.Contains(t, out.Skipped[0].Detail, "404")
	assert.Equal(t, "ZERO", out.Skipped[1].Ticker)
	assert.Equal(t, domain.SkipPriceUnavailable, out.Skipped[1].Reason)
}

func TestSelect_Empty(t *testing.T) {
	sel := NewSelector(SelectorConfig{Threshold: 6}, &fakePrices{})
	out := sel.Select(context.Background(), nil, nil)
	assert.Empty(t, out.Buys)
	assert.Empty(t, out.Skipped)
}

func TestNormalizeTicker(t *testing.T) {
	for in, want := range map[string]bool{
		"AAPL":         true,
		"brk.b":        true,
		"BF-B":         true,
		"1ABC":         false,
		"":             false,
		"TOOLONGTICKR": false,
		"AB CD":        false,
	} {
		_, ok := NormalizeTicker(in)
		assert.Equal(t, want, ok, in)
	}
}

func TestNewSelector_ZeroConfigTakesDefaults(t *testing.T) {
	prices := &fakePrices{prices: map[string]float64{"LOW": 10, "HIGH": 10}}
	sel := NewSelector(SelectorConfig{}, prices)
	assert.Equal(t, SelectorConfig{Threshold: DefaultThreshold, Budget: DefaultBudget, Concurrency: DefaultConcurrency}, sel.cfg)

	out := sel.Select(context.Background(), []domain.ScoredTransaction{scored("HIGH", 6), scored("LOW", 1)}, nil)
	require.Len(t, out.Buys, 1)
	assert.Equal(t, "HIGH", out.Buys[0].Symbol)
	assert.Equal(t, int64(5), out.Buys[0].Quantity)
	assert.NotContains(t, prices.calls, "LOW")
}
