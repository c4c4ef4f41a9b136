package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// submit sends one market order and always returns a result describing the
// attempt, whatever the broker returned.
func submit(ctx context.Context, broker domain.Broker, logger *slog.Logger, symbol string, qty int64, side domain.OrderSide) domain.OrderResult {
	req := domain.OrderRequest{
		ClientOrderID: uuid.NewString(),
		Symbol:        symbol,
		Quantity:      qty,
		Side:          side,
	}

	res, err := broker.SubmitOrder(ctx, req)
	if res.ClientOrderID == "" {
		res.ClientOrderID = req.ClientOrderID
	}
	if res.Symbol == "" {
		res.Symbol = symbol
	}
	if res.Side == "" {
		res.Side = side
	}
	if res.Quantity == 0 {
		res.Quantity = qty
	}

	if err != nil {
		res.Success = false
		if res.Reason == "" {
			res.Reason = err.Error()
		}
		logger.WarnContext(ctx, "order failed",
			slog.String("symbol", symbol),
			slog.String("side", string(side)),
			slog.Int64("qty", qty),
			slog.String("error", err.Error()),
		)
		return res
	}

	logger.InfoContext(ctx, "order submitted",
		slog.String("symbol", symbol),
		slog.String("side", strings.ToUpper(string(side))),
		slog.Int64("qty", qty),
		slog.String("order_id", res.OrderID),
		slog.String("status", res.Status),
	)
	return res
}
