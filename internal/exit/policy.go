package exit

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Policy names accepted by NewPolicy.
const (
	PolicyTrailingStop       = "trailing_stop"
	PolicyStopLossTakeProfit = "stop_loss_take_profit"
)

// Defaults for the built-in policies.
const (
	DefaultTrailPercent  = 0.08
	DefaultMaxDailyExits = 3
	DefaultStopLoss      = -0.05
	DefaultTakeProfit    = 0.10
)

// Policy classifies evaluated positions and turns them into a sell plan.
type Policy interface {
	Name() string
	Decide(ev domain.ExitEvaluation) domain.ExitDecision
	Plan(evals []domain.ExitEvaluation) domain.ExitPlan
}

// PolicyConfig carries the parameters of every built-in policy; each policy
// reads only its own fields. NewPolicy replaces unset fields with the package
// defaults.
type PolicyConfig struct {
	TrailPercent  float64
	MaxDailyExits int
	StopLoss      float64
	TakeProfit    float64
}

// NewPolicy returns the named policy. An empty name selects the trailing
// stop.
func NewPolicy(name string, cfg PolicyConfig) (Policy, error) {
	if cfg.TrailPercent <= 0 {
		cfg.TrailPercent = DefaultTrailPercent
	}
	if cfg.MaxDailyExits <= 0 {
		cfg.MaxDailyExits = DefaultMaxDailyExits
	}
	// A stop loss is a loss and a take profit a gain; anything else is unset.
	if cfg.StopLoss >= 0 {
		cfg.StopLoss = DefaultStopLoss
	}
	if cfg.TakeProfit <= 0 {
		cfg.TakeProfit = DefaultTakeProfit
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyTrailingStop:
		return &TrailingStop{TrailPercent: cfg.TrailPercent, MaxDailyExits: cfg.MaxDailyExits}, nil
	case PolicyStopLossTakeProfit:
		return &StopLossTakeProfit{StopLoss: cfg.StopLoss, TakeProfit: cfg.TakeProfit}, nil
	default:
		return nil, fmt.Errorf("exit: unknown policy %q (valid: %s, %s)",
			name, PolicyTrailingStop, PolicyStopLossTakeProfit)
	}
}

// TrailingStop sells positions that have fallen TrailPercent or more from
// their watermark, worst P/L first, at most MaxDailyExits per run.
type TrailingStop struct {
	TrailPercent  float64
	MaxDailyExits int
}

// Name returns the policy name.
func (p *TrailingStop) Name() string { return PolicyTrailingStop }

// Decide marks ev as a sell when its drawdown reaches the trail.
func (p *TrailingStop) Decide(ev domain.ExitEvaluation) domain.ExitDecision {
	d := domain.ExitDecision{Evaluation: ev, Action: domain.ExitHold}
	if ev.Drawdown >= p.TrailPercent {
		d.Action = domain.ExitSell
		d.Reason = domain.ReasonTrailingStop
	}
	return d
}

// Plan selects the violators with the lowest P/L up to the daily cap. Ties
// keep input order. Violators beyond the cap are returned as Deferred.
func (p *TrailingStop) Plan(evals []domain.ExitEvaluation) domain.ExitPlan {
	plan := domain.ExitPlan{Policy: p.Name(), Decisions: make([]domain.ExitDecision, 0, len(evals))}

	var violators []domain.ExitDecision
	for _, ev := range evals {
		d := p.Decide(ev)
		plan.Decisions = append(plan.Decisions, d)
		if d.Action == domain.ExitSell {
			violators = append(violators, d)
		}
	}
	sort.SliceStable(violators, func(i, j int) bool {
		return violators[i].Evaluation.PL < violators[j].Evaluation.PL
	})

	limit := max(p.MaxDailyExits, 0)
	for i, d := range violators {
		if i < limit {
			plan.Sells = append(plan.Sells, SellFor(d))
			continue
		}
		plan.Deferred = append(plan.Deferred, d.Evaluation)
	}
	return plan
}

// StopLossTakeProfit sells any position whose P/L is at or below StopLoss or
// at or above TakeProfit. It has no per-run cap.
type StopLossTakeProfit struct {
	StopLoss   float64
	TakeProfit float64
}

// Name returns the policy name.
func (p *StopLossTakeProfit) Name() string { return PolicyStopLossTakeProfit }

// Decide classifies ev against the stop-loss and take-profit bounds.
func (p *StopLossTakeProfit) Decide(ev domain.ExitEvaluation) domain.ExitDecision {
	d := domain.ExitDecision{Evaluation: ev, Action: domain.ExitHold}
	switch {
	case ev.PL <= p.StopLoss:
		d.Action = domain.ExitSell
		d.Reason = domain.ReasonStopLoss
	case ev.PL >= p.TakeProfit:
		d.Action = domain.ExitSell
		d.Reason = domain.ReasonTakeProfit
	}
	return d
}

// Plan sells every eligible position in input order.
func (p *StopLossTakeProfit) Plan(evals []domain.ExitEvaluation) domain.ExitPlan {
	plan := domain.ExitPlan{Policy: p.Name(), Decisions: make([]domain.ExitDecision, 0, len(evals))}
	for _, ev := range evals {
		d := p.Decide(ev)
		plan.Decisions = append(plan.Decisions, d)
		if d.Action == domain.ExitSell {
			plan.Sells = append(plan.Sells, SellFor(d))
		}
	}
	return plan
}

// SellFor builds the sell instruction for a sell decision. Fractional
// holdings are truncated to whole shares, which may yield zero.
func SellFor(d domain.ExitDecision) domain.SellInstruction {
	ev := d.Evaluation
	return domain.SellInstruction{
		Symbol:       ev.Symbol,
		Quantity:     int64(math.Trunc(ev.Quantity)),
		CurrentPrice: ev.CurrentPrice,
		CostBasis:    ev.CostBasis,
		Highest:      ev.Highest,
		Drawdown:     ev.Drawdown,
		PL:           ev.PL,
		Reason:       d.Reason,
	}
}
