package handler

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// WatermarkHandler exposes the trailing-stop high-water marks.
type WatermarkHandler struct {
	store  domain.WatermarkStore
	logger *slog.Logger
}

// NewWatermarkHandler creates a WatermarkHandler. store may be nil.
func NewWatermarkHandler(store domain.WatermarkStore, logger *slog.Logger) *WatermarkHandler {
	return &WatermarkHandler{store: store, logger: logHandler(logger, "watermarks")}
}

type watermark struct {
	Symbol  string  `json:"symbol"`
	Highest float64 `json:"highest"`
}

type listWatermarksResponse struct {
	Watermarks []watermark `json:"watermarks"`
}

// ListWatermarks returns every tracked symbol's highest price, by symbol.
// GET /api/watermarks
func (h *WatermarkHandler) ListWatermarks(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeUnavailable(w, "watermark store")
		return
	}

	state, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: load watermarks failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load watermarks")
		return
	}

	out := make([]watermark, 0, len(state))
	for sym, hi := range state {
		out = append(out, watermark{Symbol: sym, Highest: hi})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	writeJSON(w, http.StatusOK, listWatermarksResponse{Watermarks: out})
}
