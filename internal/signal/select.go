package signal

import (
	"context"
	"math"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Selector defaults.
const (
	DefaultThreshold   = 6
	DefaultBudget      = 50.0
	DefaultConcurrency = 4
)

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// NormalizeTicker trims and upper-cases a feed ticker and reports whether the
// result is a plausible exchange symbol.
func NormalizeTicker(raw string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	return t, tickerPattern.MatchString(t)
}

// SelectorConfig holds trade selection parameters.
type SelectorConfig struct {
	Threshold   int
	Budget      float64 // notional currency per trade
	Concurrency int     // parallel price lookups
}

// Selection is the result of one selection pass.
type Selection struct {
	Buys    []domain.BuyInstruction
	Skipped []domain.SkippedCandidate
}

// Selector maps ranked candidates to sized buy instructions.
type Selector struct {
	cfg    SelectorConfig
	prices domain.PriceSource
}

// NewSelector creates a Selector. Zero-valued config fields take the package
// defaults; a non-positive budget or concurrency does too.
func NewSelector(cfg SelectorConfig, prices domain.PriceSource) *Selector {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Selector{cfg: cfg, prices: prices}
}

// Quantity sizes a buy: the number of whole shares the budget affords, but
// never less than one.
func Quantity(budget, price float64) int64 {
	q := int64(math.Floor(budget / price))
	if q < 1 {
		return 1
	}
	return q
}

type candidate struct {
	symbol string
	st     domain.ScoredTransaction
	price  float64
	err    error
}

// Select walks ranked in order and emits at most one buy per symbol for every
// candidate scoring at least the threshold whose symbol is valid, not held,
// and has a positive price. Price lookups run concurrently; a failed lookup
// skips only that candidate. Select never places orders.
func (s *Selector) Select(ctx context.Context, ranked []domain.ScoredTransaction, held map[string]bool) Selection {
	var sel Selection
	seen := make(map[string]bool)
	var cands []*candidate

	for _, st := range ranked {
		if st.Score < s.cfg.Threshold {
			continue
		}
		symbol, ok := NormalizeTicker(st.Ticker)
		switch {
		case !ok:
			sel.Skipped = append(sel.Skipped, domain.SkippedCandidate{
				Ticker: st.Ticker, Score: st.Score, Reason: domain.SkipInvalidTicker,
			})
			continue
		case held[symbol]:
			sel.Skipped = append(sel.Skipped, domain.SkippedCandidate{
				Ticker: symbol, Score: st.Score, Reason: domain.SkipAlreadyHeld,
			})
			continue
		case seen[symbol]:
			sel.Skipped = append(sel.Skipped, domain.SkippedCandidate{
				Ticker: symbol, Score: st.Score, Reason: domain.SkipDuplicate,
			})
			continue
		}
		seen[symbol] = true
		cands = append(cands, &candidate{symbol: symbol, st: st})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, c := range cands {
		g.Go(func() error {
			c.price, c.err = s.prices.LatestPrice(gctx, c.symbol)
			// Lookup failures are per-candidate; never cancel the group.
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range cands {
		if c.err != nil || c.price <= 0 || math.IsNaN(c.price) {
			detail := "non-positive price"
			if c.err != nil {
				detail = c.err.Error()
			}
			sel.Skipped = append(sel.Skipped, domain.SkippedCandidate{
				Ticker: c.symbol, Score: c.st.Score, Reason: domain.SkipPriceUnavailable, Detail: detail,
			})
			continue
		}
		sel.Buys = append(sel.Buys, domain.BuyInstruction{
			Symbol:   c.symbol,
			Quantity: Quantity(s.cfg.Budget, c.price),
			Price:    c.price,
			Score:    c.st.Score,
			Source:   c.st,
		})
	}
	return sel
}

// HeldSymbols builds the exclusion set from a broker position snapshot.
func HeldSymbols(positions []domain.Position) map[string]bool {
	held := make(map[string]bool, len(positions))
	for _, p := range positions {
		if sym, _ := NormalizeTicker(p.Symbol); sym != "" {
			held[sym] = true
		}
	}
	return held
}
