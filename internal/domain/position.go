package domain

// Position is a brokerage holding as reported by the broker. The core only
// reads snapshots of it.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"qty"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price"`
}

// WatermarkState maps a symbol to the highest price observed for it since it
// was first tracked.
type WatermarkState map[string]float64

// Clone returns an independent copy of the state.
func (s WatermarkState) Clone() WatermarkState {
	out := make(WatermarkState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ExitEvaluation is the per-position snapshot computed on every run.
type ExitEvaluation struct {
	Symbol       string
	Quantity     float64
	CurrentPrice float64
	CostBasis    float64
	Highest      float64
	Drawdown     float64 // (highest - current) / highest
	PL           float64 // (current - cost) / cost
}

// ExitAction is the outcome of classifying a position.
type ExitAction string

const (
	ExitHold ExitAction = "hold"
	ExitSell ExitAction = "sell"
)

// ExitReason names the rule that made a position sell-eligible.
type ExitReason string

const (
	ReasonTrailingStop ExitReason = "trailing_stop"
	ReasonStopLoss     ExitReason = "stop_loss"
	ReasonTakeProfit   ExitReason = "take_profit"
)

// ExitDecision classifies a single evaluated position.
type ExitDecision struct {
	Evaluation ExitEvaluation
	Action     ExitAction
	Reason     ExitReason
}

// ExitPlan is the result of applying an exit policy to all evaluations of a
// run.
type ExitPlan struct {
	Policy    string
	Decisions []ExitDecision
	Sells     []SellInstruction
	// Deferred holds sell-eligible positions left open by the daily cap.
	Deferred []ExitEvaluation
}
