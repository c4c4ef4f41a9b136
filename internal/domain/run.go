package domain

import "time"

// RunInfo identifies a single scheduled run.
type RunInfo struct {
	ID        string
	StartedAt time.Time
}

// RunRecord is the persisted bookkeeping row for a run.
type RunRecord struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	TradesMade int        `json:"trades_made"`
	Errors     int        `json:"errors"`
}

// BuyReport summarizes the buy phase of a run.
type BuyReport struct {
	Fetched  int
	Retained int
	Scored   []ScoredTransaction
	Buys     []BuyInstruction
	Skipped  []SkippedCandidate
	Orders   []OrderResult
	Fatal    error
}

// ExitReport summarizes the exit phase of a run.
type ExitReport struct {
	Positions   []Position
	Evaluations []ExitEvaluation
	Watermarks  WatermarkState
	Plan        ExitPlan
	Orders      []OrderResult
	Errors      []string
}

// RunSummary is everything a run did, handed to report sinks at the end.
type RunSummary struct {
	Run        RunInfo
	FinishedAt time.Time
	Buy        BuyReport
	Exit       ExitReport
	TradesMade int
	Errors     int
}

// OrderReport pairs an order result with the instruction that produced it.
type OrderReport struct {
	Result OrderResult
	Buy    *BuyInstruction
	Sell   *SellInstruction
}
