// Package alpaca is the REST client for the Alpaca brokerage: account,
// positions and order entry on the trading API, and latest quotes on the
// market data API.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// Config holds the endpoints and credentials for NewClient.
type Config struct {
	TradingURL string // e.g. "https://paper-api.alpaca.markets"
	DataURL    string // e.g. "https://data.alpaca.markets"
	KeyID      string
	SecretKey  string
	Timeout    time.Duration
}

// Client talks to the Alpaca trading and market data APIs.
type Client struct {
	tradingURL string
	dataURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Alpaca client. A zero timeout defaults to 15
// seconds.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		tradingURL: strings.TrimRight(cfg.TradingURL, "/"),
		dataURL:    strings.TrimRight(cfg.DataURL, "/"),
		keyID:      cfg.KeyID,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Positions returns every open position in the account.
func (c *Client) Positions(ctx context.Context) ([]domain.Position, error) {
	body, err := c.do(ctx, http.MethodGet, c.tradingURL+"/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("alpaca: list positions: %w", err)
	}

	var apiPositions []APIPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("alpaca: decode positions: %w", err)
	}

	out := make([]domain.Position, 0, len(apiPositions))
	for _, p := range apiPositions {
		out = append(out, p.ToDomain())
	}
	return out, nil
}

// SubmitOrder places a market day order. The returned result always
// describes the attempt; err is non-nil when the broker rejected it or could
// not be reached.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	result := domain.OrderResult{
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		SubmittedAt:   c.now().UTC(),
	}
	if result.ClientOrderID == "" {
		result.ClientOrderID = uuid.NewString()
	}

	if req.Quantity <= 0 || req.Symbol == "" ||
		(req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell) {
		result.Reason = domain.ErrInvalidOrder.Error()
		return result, fmt.Errorf("alpaca: submit order %s: %w", req.Symbol, domain.ErrInvalidOrder)
	}

	payload := OrderRequest{
		Symbol:        req.Symbol,
		Qty:           strconv.FormatInt(req.Quantity, 10),
		Side:          string(req.Side),
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: result.ClientOrderID,
	}

	body, err := c.do(ctx, http.MethodPost, c.tradingURL+"/v2/orders", payload)
	if err != nil {
		result.Reason = err.Error()
		return result, fmt.Errorf("alpaca: submit order %s: %w", req.Symbol, err)
	}

	var order APIOrder
	if err := json.Unmarshal(body, &order); err != nil {
		result.Reason = "undecodable order response"
		return result, fmt.Errorf("alpaca: decode order: %w", err)
	}

	result.OrderID = order.ID
	result.Status = order.Status
	result.Success = true
	if order.FilledAvgPrice != nil {
		result.Price = order.FilledAvgPrice.InexactFloat64()
	}
	if !order.SubmittedAt.IsZero() {
		result.SubmittedAt = order.SubmittedAt.UTC()
	}
	return result, nil
}

// PortfolioValue returns the account's total portfolio value.
func (c *Client) PortfolioValue(ctx context.Context) (float64, error) {
	body, err := c.do(ctx, http.MethodGet, c.tradingURL+"/v2/account", nil)
	if err != nil {
		return 0, fmt.Errorf("alpaca: get account: %w", err)
	}
	var acct APIAccount
	if err := json.Unmarshal(body, &acct); err != nil {
		return 0, fmt.Errorf("alpaca: decode account: %w", err)
	}
	return acct.PortfolioValue.InexactFloat64(), nil
}

// LatestQuote returns the latest ask and bid for symbol and, when the quote
// is one-sided or empty, the latest trade price.
func (c *Client) LatestQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	q := domain.Quote{Symbol: symbol}
	sym := url.PathEscape(symbol)

	body, err := c.do(ctx, http.MethodGet, c.dataURL+"/v2/stocks/"+sym+"/quotes/latest", nil)
	if err != nil {
		return q, fmt.Errorf("alpaca: latest quote %s: %w", symbol, err)
	}
	var qr latestQuoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return q, fmt.Errorf("alpaca: decode quote %s: %w", symbol, err)
	}
	q.Ask = qr.Quote.AskPrice
	q.Bid = qr.Quote.BidPrice
	if q.Ask > 0 {
		return q, nil
	}

	body, err = c.do(ctx, http.MethodGet, c.dataURL+"/v2/stocks/"+sym+"/trades/latest", nil)
	if err != nil {
		if q.Bid > 0 {
			return q, nil
		}
		return q, fmt.Errorf("alpaca: latest trade %s: %w", symbol, err)
	}
	var tr latestTradeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		if q.Bid > 0 {
			return q, nil
		}
		return q, fmt.Errorf("alpaca: decode trade %s: %w", symbol, err)
	}
	q.Last = tr.Trade.Price
	return q, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// do builds, authenticates, sends, and reads an HTTP request.
func (c *Client) do(ctx context.Context, method, fullURL string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.Message)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrInvalidOrder, apiErr.Message)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Message)
	}
}

// Compile-time interface checks.
var (
	_ domain.Broker        = (*Client)(nil)
	_ domain.QuoteSource   = (*Client)(nil)
	_ domain.AccountSource = (*Client)(nil)
)
