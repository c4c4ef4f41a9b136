package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

var testNow = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFeed struct {
	records []domain.RawRecord
	err     error
}

func (f *fakeFeed) FetchDisclosures(context.Context) ([]domain.RawRecord, error) {
	return f.records, f.err
}

// fakeBroker records submitted orders. failSymbols reject with an error.
type fakeBroker struct {
	mu          sync.Mutex
	positions   []domain.Position
	positionErr error
	failSymbols map[string]bool
	submitted   []domain.OrderRequest
}

func (b *fakeBroker) Positions(context.Context) ([]domain.Position, error) {
	return b.positions, b.positionErr
}

func (b *fakeBroker) SubmitOrder(_ context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, req)
	if b.failSymbols[req.Symbol] || b.failSymbols["*"] {
		return domain.OrderResult{}, errors.New("broker rejected " + req.Symbol)
	}
	return domain.OrderResult{
		ClientOrderID: req.ClientOrderID,
		OrderID:       "ord-" + req.Symbol,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		Success:       true,
		Status:        "accepted",
	}, nil
}

func (b *fakeBroker) symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.submitted))
	for _, r := range b.submitted {
		out = append(out, string(r.Side)+":"+r.Symbol)
	}
	return out
}

type fakePrices map[string]float64

func (p fakePrices) LatestPrice(_ context.Context, symbol string) (float64, error) {
	if v, ok := p[symbol]; ok {
		return v, nil
	}
	return 0, domain.ErrPriceUnavailable
}

type fakeQuotes struct {
	quotes map[string]domain.Quote
	err    error
	calls  int
}

func (f *fakeQuotes) LatestQuote(_ context.Context, symbol string) (domain.Quote, error) {
	f.calls++
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return f.quotes[symbol], nil
}

type cachedPrice struct {
	price float64
	ts    time.Time
}

type fakeCache struct {
	prices map[string]cachedPrice
}

func (c *fakeCache) SetPrice(_ context.Context, symbol string, price float64, ts time.Time) error {
	c.prices[symbol] = cachedPrice{price, ts}
	return nil
}

func (c *fakeCache) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	p, ok := c.prices[symbol]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p.price, p.ts, nil
}

// recordingSink captures every report event; err makes every call fail.
type recordingSink struct {
	mu        sync.Mutex
	err       error
	scored    int
	orders    []domain.OrderReport
	summaries []domain.RunSummary
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) ScoredCandidates(_ context.Context, _ domain.RunInfo, scored []domain.ScoredTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scored += len(scored)
	return s.err
}

func (s *recordingSink) OrderPlaced(_ context.Context, _ domain.RunInfo, rep domain.OrderReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, rep)
	return s.err
}

func (s *recordingSink) RunFinished(_ context.Context, sum domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
	return s.err
}

// failingWatermarks counts saves and can fail loads or saves.
type failingWatermarks struct {
	state   domain.WatermarkState
	loadErr error
	saveErr error
	saves   []domain.WatermarkState
}

func (w *failingWatermarks) Load(context.Context) (domain.WatermarkState, error) {
	if w.loadErr != nil {
		return nil, w.loadErr
	}
	return w.state.Clone(), nil
}

func (w *failingWatermarks) Save(_ context.Context, s domain.WatermarkState) error {
	w.saves = append(w.saves, s.Clone())
	return w.saveErr
}

type fakeLocker struct {
	err      error
	released int
}

func (l *fakeLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}
