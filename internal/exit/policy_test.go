package exit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

func eval(symbol string, qty, drawdown, pl float64) domain.ExitEvaluation {
	return domain.ExitEvaluation{Symbol: symbol, Quantity: qty, CurrentPrice: 10, CostBasis: 10, Highest: 12, Drawdown: drawdown, PL: pl}
}

func TestTrailingStop_Decide(t *testing.T) {
	p := &TrailingStop{TrailPercent: 0.08, MaxDailyExits: 3}

	assert.Equal(t, domain.ExitHold, p.Decide(eval("A", 1, 0.079, 0)).Action)

	d := p.Decide(eval("A", 1, 0.08, 0))
	assert.Equal(t, domain.ExitSell, d.Action)
	assert.Equal(t, domain.ReasonTrailingStop, d.Reason)
}

func TestTrailingStop_CapSelectsLowestPL(t *testing.T) {
	p := &TrailingStop{TrailPercent: 0.08, MaxDailyExits: 3}
	evals := []domain.ExitEvaluation{
		eval("A", 1, 0.10, -0.02),
		eval("B", 1, 0.20, -0.15),
		eval("HOLD", 1, 0.01, -0.50),
		eval("C", 1, 0.09, 0.05),
		eval("D", 1, 0.12, -0.30),
		eval("E", 1, 0.30, -0.15),
	}

	plan := p.Plan(evals)
	assert.Equal(t, PolicyTrailingStop, plan.Policy)
	assert.Len(t, plan.Decisions, 6)

	var sold []string
	for _, s := range plan.Sells {
		sold = append(sold, s.Symbol)
	}
	assert.Equal(t, []string{"D", "B", "E"}, sold, "lowest P/L first, ties in input order")

	var deferred []string
	for _, ev := range plan.Deferred {
		deferred = append(deferred, ev.Symbol)
	}
	assert.Equal(t, []string{"A", "C"}, deferred)
}

func TestTrailingStop_ZeroCapSellsNothing(t *testing.T) {
	p := &TrailingStop{TrailPercent: 0.08, MaxDailyExits: 0}
	plan := p.Plan([]domain.ExitEvaluation{eval("A", 1, 0.5, -0.5)})
	assert.Empty(t, plan.Sells)
	assert.Len(t, plan.Deferred, 1)
}

func TestTrailingStop_NoViolators(t *testing.T) {
	p := &TrailingStop{TrailPercent: 0.08, MaxDailyExits: 3}
	plan := p.Plan([]domain.ExitEvaluation{eval("A", 1, 0.01, 0.2)})
	assert.Empty(t, plan.Sells)
	assert.Empty(t, plan.Deferred)
}

func TestStopLossTakeProfit(t *testing.T) {
	p := &StopLossTakeProfit{StopLoss: -0.05, TakeProfit: 0.10}
	evals := []domain.ExitEvaluation{
		eval("WIN", 2, 0, 0.10),
		eval("FLAT", 2, 0, 0.0),
		eval("LOSS", 2, 0, -0.05),
		eval("BIGWIN", 2, 0, 0.40),
	}

	plan := p.Plan(evals)
	require.Len(t, plan.Sells, 3)
	assert.Equal(t, "WIN", plan.Sells[0].Symbol)
	assert.Equal(t, domain.ReasonTakeProfit, plan.Sells[0].Reason)
	assert.Equal(t, "LOSS", plan.Sells[1].Symbol)
	assert.Equal(t, domain.ReasonStopLoss, plan.Sells[1].Reason)
	assert.Equal(t, "BIGWIN", plan.Sells[2].Symbol)
	assert.Empty(t, plan.Deferred)
}

func TestSellFor_TruncatesQuantity(t *testing.T) {
	d := domain.ExitDecision{Evaluation: eval("FRAC", 2.9, 0.1, -0.1), Action: domain.ExitSell, Reason: domain.ReasonTrailingStop}
	assert.Equal(t, int64(2), SellFor(d).Quantity)

	d.Evaluation.Quantity = 0.4
	assert.Equal(t, int64(0), SellFor(d).Quantity)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", PolicyConfig{TrailPercent: 0.08, MaxDailyExits: 3})
	require.NoError(t, err)
	assert.Equal(t, PolicyTrailingStop, p.Name())

	p, err = NewPolicy("stop_loss_take_profit", PolicyConfig{StopLoss: -0.05, TakeProfit: 0.1})
	require.NoError(t, err)
	assert.Equal(t, PolicyStopLossTakeProfit, p.Name())

	_, err = NewPolicy("martingale", PolicyConfig{})
	require.Error(t, err)
}

func TestNewPolicy_ZeroConfigTakesDefaults(t *testing.T) {
	p, err := NewPolicy(PolicyTrailingStop, PolicyConfig{})
	require.NoError(t, err)
	ts := p.(*TrailingStop)
	assert.Equal(t, DefaultTrailPercent, ts.TrailPercent)
	assert.Equal(t, DefaultMaxDailyExits, ts.MaxDailyExits)

	flat := eval("FLAT", 1, 0, 0)
	assert.Equal(t, domain.ExitHold, p.Decide(flat).Action)
	plan := p.Plan([]domain.ExitEvaluation{flat})
	assert.Empty(t, plan.Sells)
	assert.Empty(t, plan.Deferred)

	p, err = NewPolicy(PolicyStopLossTakeProfit, PolicyConfig{})
	require.NoError(t, err)
	sl := p.(*StopLossTakeProfit)
	assert.Equal(t, DefaultStopLoss, sl.StopLoss)
	assert.Equal(t, DefaultTakeProfit, sl.TakeProfit)
	assert.Equal(t, domain.ExitHold, p.Decide(flat).Action)
	assert.Empty(t, p.Plan([]domain.ExitEvaluation{flat}).Sells)

	p, err = NewPolicy(PolicyTrailingStop, PolicyConfig{TrailPercent: 0.2, MaxDailyExits: 1})
	require.NoError(t, err)
	assert.Equal(t, &TrailingStop{TrailPercent: 0.2, MaxDailyExits: 1}, p)
}
