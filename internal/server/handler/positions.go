package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// PositionLister returns the broker's live holdings.
type PositionLister interface {
	Positions(ctx context.Context) ([]domain.Position, error)
}

// SnapshotLister returns the positions recorded by the last run.
type SnapshotLister interface {
	LatestPositions(ctx context.Context) ([]domain.Position, error)
}

// PositionHandler serves open positions either live from the broker or from
// the last recorded snapshot.
type PositionHandler struct {
	live     PositionLister
	snapshot SnapshotLister
	logger   *slog.Logger
}

// NewPositionHandler creates a PositionHandler. Either source may be nil.
func NewPositionHandler(live PositionLister, snapshot SnapshotLister, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{live: live, snapshot: snapshot, logger: logHandler(logger, "positions")}
}

type listPositionsResponse struct {
	Source    string            `json:"source"`
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns positions. source=live asks the broker; the default
// prefers the stored snapshot and falls back to the broker.
// GET /api/positions?source=live|snapshot
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "snapshot"
		if h.snapshot == nil {
			source = "live"
		}
	}

	var (
		positions []domain.Position
		err       error
	)
	switch source {
	case "live":
		if h.live == nil {
			writeUnavailable(w, "broker")
			return
		}
		positions, err = h.live.Positions(r.Context())
	case "snapshot":
		if h.snapshot == nil {
			writeUnavailable(w, "portfolio store")
			return
		}
		positions, err = h.snapshot.LatestPositions(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "source must be live or snapshot")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Source: source, Positions: positions})
}
