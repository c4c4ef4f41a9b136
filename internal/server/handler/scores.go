package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// ScoreHandler serves per-ticker score aggregates.
type ScoreHandler struct {
	signals domain.SignalStore
	logger  *slog.Logger
}

// NewScoreHandler creates a ScoreHandler. signals may be nil.
func NewScoreHandler(signals domain.SignalStore, logger *slog.Logger) *ScoreHandler {
	return &ScoreHandler{signals: signals, logger: logHandler(logger, "scores")}
}

type listScoresResponse struct {
	Scores []domain.TickerScore `json:"scores"`
}

// ListScores returns recent ticker scores.
// GET /api/scores
func (h *ScoreHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	if h.signals == nil {
		writeUnavailable(w, "signal store")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scores, err := h.signals.ListTickerScores(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list scores failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list scores")
		return
	}
	if scores == nil {
		scores = []domain.TickerScore{}
	}
	writeJSON(w, http.StatusOK, listScoresResponse{Scores: scores})
}
