package alpaca

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// APIPosition is an open position as returned by GET /v2/positions. Alpaca
// encodes every numeric field as a decimal string.
type APIPosition struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	Side          string          `json:"side"`
}

// ToDomain converts the API position to a domain.Position.
func (p APIPosition) ToDomain() domain.Position {
	return domain.Position{
		Symbol:        p.Symbol,
		Quantity:      p.Qty.InexactFloat64(),
		AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
		CurrentPrice:  p.CurrentPrice.InexactFloat64(),
	}
}

// OrderRequest is the body of POST /v2/orders.
type OrderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// APIOrder is the order object echoed back by the orders endpoint.
type APIOrder struct {
	ID             string           `json:"id"`
	ClientOrderID  string           `json:"client_order_id"`
	Symbol         string           `json:"symbol"`
	Side           string           `json:"side"`
	Qty            decimal.Decimal  `json:"qty"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price"`
	Status         string           `json:"status"`
	SubmittedAt    time.Time        `json:"submitted_at"`
}

// APIAccount is the subset of GET /v2/account the bot reads.
type APIAccount struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	Equity         decimal.Decimal `json:"equity"`
}

// latestQuoteResponse is the body of GET /v2/stocks/{symbol}/quotes/latest.
type latestQuoteResponse struct {
	Symbol string `json:"symbol"`
	Quote  struct {
		AskPrice float64   `json:"ap"`
		BidPrice float64   `json:"bp"`
		Time     time.Time `json:"t"`
	} `json:"quote"`
}

// latestTradeResponse is the body of GET /v2/stocks/{symbol}/trades/latest.
type latestTradeResponse struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price float64   `json:"p"`
		Time  time.Time `json:"t"`
	} `json:"trade"`
}

// ErrorResponse is the error body returned by both Alpaca APIs.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
