package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/metrics"
)

// PriceService implements domain.PriceSource in front of the broker's quote
// API, with an optional short-lived price cache.
type PriceService struct {
	quotes  domain.QuoteSource
	cache   domain.PriceCache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewPriceService creates a PriceService. cache may be nil; a non-positive
// ttl disables cache reads.
func NewPriceService(quotes domain.QuoteSource, cache domain.PriceCache, ttl time.Duration, logger *slog.Logger) *PriceService {
	return &PriceService{
		quotes: quotes,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "price_service")),
		now:    time.Now,
	}
}

// WithMetrics attaches lookup counters.
func (s *PriceService) WithMetrics(m *metrics.Metrics) *PriceService {
	s.metrics = m
	return s
}

// LatestPrice returns a fresh cached price, or else the broker's ask, bid or
// last trade price, in that order of preference. It returns an error
// wrapping domain.ErrPriceUnavailable when none is positive.
func (s *PriceService) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := s.cached(ctx, symbol); ok {
		s.count("cache")
		return price, nil
	}

	q, err := s.quotes.LatestQuote(ctx, symbol)
	if err != nil {
		s.count("unavailable")
		return 0, fmt.Errorf("price_service: quote %s: %w: %w", symbol, domain.ErrPriceUnavailable, err)
	}

	price := PickPrice(q)
	if price <= 0 {
		s.count("unavailable")
		return 0, fmt.Errorf("price_service: quote %s: %w", symbol, domain.ErrPriceUnavailable)
	}
	s.count("broker")

	if s.cache != nil {
		if err := s.cache.SetPrice(ctx, symbol, price, s.now()); err != nil {
			s.logger.WarnContext(ctx, "price cache write failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return price, nil
}

func (s *PriceService) cached(ctx context.Context, symbol string) (float64, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return 0, false
	}
	price, ts, err := s.cache.GetPrice(ctx, symbol)
	if err != nil || price <= 0 || s.now().Sub(ts) > s.ttl {
		return 0, false
	}
	return price, true
}

func (s *PriceService) count(source string) {
	if s.metrics != nil {
		s.metrics.PriceLookups.WithLabelValues(source).Inc()
	}
}

// PickPrice returns the first positive of ask, bid and last trade, or 0.
func PickPrice(q domain.Quote) float64 {
	switch {
	case q.Ask > 0:
		return q.Ask
	case q.Bid > 0:
		return q.Bid
	case q.Last > 0:
		return q.Last
	default:
		return 0
	}
}

// Compile-time interface check.
var _ domain.PriceSource = (*PriceService)(nil)
