package domain

import "time"

// RawRecord is a single decoded object from the disclosure feed. The key set
// differs between feed schemas, so it is kept untyped until normalization.
type RawRecord map[string]any

// TransactionKind is the direction of a disclosed trade.
type TransactionKind string

const (
	TransactionBuy     TransactionKind = "buy"
	TransactionSell    TransactionKind = "sell"
	TransactionUnknown TransactionKind = "unknown"
)

// TransactionRecord is one normalized legislator trade disclosure.
type TransactionRecord struct {
	Ticker          string
	Kind            TransactionKind
	RawTransaction  string
	TradeSize       float64
	HasTradeSize    bool // the feed schema carries a trade size column
	ExcessReturn    float64
	HasExcessReturn bool // the feed schema carries an excess return column
	TransactedAt    time.Time
	ActorName       string

	// Passthrough fields, carried for reporting only.
	Company  string
	Party    string
	District string
	Chamber  string
}

// ScoredTransaction is a TransactionRecord annotated with its score for the
// current run.
type ScoredTransaction struct {
	TransactionRecord
	Score  int
	Reason string // rule contributions behind Score
}

// SkipReason explains why a ranked candidate produced no buy instruction.
type SkipReason string

const (
	SkipInvalidTicker    SkipReason = "invalid_ticker"
	SkipAlreadyHeld      SkipReason = "already_held"
	SkipDuplicate        SkipReason = "duplicate_in_run"
	SkipPriceUnavailable SkipReason = "price_unavailable"
)

// SkippedCandidate records a candidate that passed the score threshold but was
// not turned into a buy.
type SkippedCandidate struct {
	Ticker string
	Score  int
	Reason SkipReason
	Detail string
}
