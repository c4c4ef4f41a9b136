package domain

import "context"

// FeedSource supplies raw disclosure records.
type FeedSource interface {
	FetchDisclosures(ctx context.Context) ([]RawRecord, error)
}

// Quote is the latest top-of-book and last trade for a symbol. Zero means
// the field was not reported.
type Quote struct {
	Symbol string
	Ask    float64
	Bid    float64
	Last   float64
}

// QuoteSource fetches quotes from the market data provider.
type QuoteSource interface {
	LatestQuote(ctx context.Context, symbol string) (Quote, error)
}

// PriceSource returns a current tradable price for a symbol, or
// ErrPriceUnavailable.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// Broker is the brokerage account: holdings and order entry.
type Broker interface {
	Positions(ctx context.Context) ([]Position, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// AccountSource reports the account's total portfolio value.
type AccountSource interface {
	PortfolioValue(ctx context.Context) (float64, error)
}
