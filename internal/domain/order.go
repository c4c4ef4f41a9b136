package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// BuyInstruction is a sized buy produced by the trade selector.
type BuyInstruction struct {
	Symbol   string
	Quantity int64
	Price    float64
	Score    int
	Source   ScoredTransaction
}

// SellInstruction is a liquidation selected by an exit policy.
type SellInstruction struct {
	Symbol       string
	Quantity     int64
	CurrentPrice float64
	CostBasis    float64
	Highest      float64
	Drawdown     float64
	PL           float64
	Reason       ExitReason
}

// OrderRequest is a market order handed to the broker.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Quantity      int64
	Side          OrderSide
}

// OrderResult reports the outcome of a single order submission.
type OrderResult struct {
	ClientOrderID string
	OrderID       string
	Symbol        string
	Side          OrderSide
	Quantity      int64
	Price         float64
	Success       bool
	Status        string
	Reason        string
	SubmittedAt   time.Time
}
