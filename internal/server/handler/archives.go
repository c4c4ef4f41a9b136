package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

// SnapshotSource lists archived run snapshots.
type SnapshotSource interface {
	Snapshots(ctx context.Context) ([]domain.BlobInfo, error)
}

// ArchiveHandler lists run snapshots in object storage.
type ArchiveHandler struct {
	archive SnapshotSource
	logger  *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. archive may be nil.
func NewArchiveHandler(archive SnapshotSource, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, logger: logHandler(logger, "archives")}
}

type listArchivesResponse struct {
	Archives []domain.BlobInfo `json:"archives"`
}

// ListArchives returns snapshots, newest first.
// GET /api/archives?limit=
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeUnavailable(w, "archive")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	infos, err := h.archive.Snapshots(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archives failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].LastModified.After(infos[j].LastModified) })
	if opts.Offset >= len(infos) {
		infos = nil
	} else {
		infos = infos[opts.Offset:]
	}
	if len(infos) > opts.Limit {
		infos = infos[:opts.Limit]
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, listArchivesResponse{Archives: infos})
}
