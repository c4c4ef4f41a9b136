// Package exit tracks per-position price watermarks and decides which
// holdings to liquidate.
package exit

import (
	"strings"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Track evaluates every position against the prior watermark state. It
// returns one evaluation per trackable position, in input order, and the
// updated state. The input state is never modified; entries for symbols not
// in positions are carried over unchanged.
//
// Positions with an empty symbol or a non-positive current price are skipped
// and leave their watermark untouched.
func Track(positions []domain.Position, state domain.WatermarkState) ([]domain.ExitEvaluation, domain.WatermarkState) {
	next := state.Clone()
	evals := make([]domain.ExitEvaluation, 0, len(positions))

	for _, p := range positions {
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if symbol == "" || !(p.CurrentPrice > 0) {
			continue
		}

		highest, ok := next[symbol]
		if !ok || !(highest > 0) || p.CurrentPrice > highest {
			highest = p.CurrentPrice
		}
		next[symbol] = highest

		evals = append(evals, domain.ExitEvaluation{
			Symbol:       symbol,
			Quantity:     p.Quantity,
			CurrentPrice: p.CurrentPrice,
			CostBasis:    p.AvgEntryPrice,
			Highest:      highest,
			Drawdown:     Drawdown(highest, p.CurrentPrice),
			PL:           ProfitLoss(p.AvgEntryPrice, p.CurrentPrice),
		})
	}
	return evals, next
}

// Drawdown is the fractional drop from highest to current, or 0 when highest
// is not positive.
func Drawdown(highest, current float64) float64 {
	if highest <= 0 {
		return 0
	}
	return (highest - current) / highest
}

// ProfitLoss is the fractional gain of current over cost, or 0 when cost is
// not positive.
func ProfitLoss(cost, current float64) float64 {
	if cost <= 0 {
		return 0
	}
	return (current - cost) / cost
}
