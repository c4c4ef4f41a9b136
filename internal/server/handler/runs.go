package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// RunHandler lists recorded runs.
type RunHandler struct {
	runs   domain.RunStore
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler. runs may be nil.
func NewRunHandler(runs domain.RunStore, logger *slog.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logHandler(logger, "runs")}
}

type listRunsResponse struct {
	Runs []domain.RunRecord `json:"runs"`
}

// ListRuns returns recent runs, newest first.
// GET /api/runs?limit=&offset=&since=&until=
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeUnavailable(w, "run store")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.runs.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs})
}
