package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// OrderHandler serves the bot's own trade log.
type OrderHandler struct {
	trades domain.TradeLogStore
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler. trades may be nil.
func NewOrderHandler(trades domain.TradeLogStore, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{trades: trades, logger: logHandler(logger, "orders")}
}

type listOrdersResponse struct {
	Orders []domain.TradeLogEntry `json:"orders"`
}

// ListOrders returns logged orders, optionally filtered by side.
// GET /api/orders?side=buy|sell
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.trades == nil {
		writeUnavailable(w, "trade log")
		return
	}

	var side domain.OrderSide
	switch v := strings.ToLower(r.URL.Query().Get("side")); v {
	case "":
	case string(domain.OrderSideBuy), string(domain.OrderSideSell):
		side = domain.OrderSide(v)
	default:
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}

	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.trades.List(r.Context(), side, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("side", string(side)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []domain.TradeLogEntry{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}
