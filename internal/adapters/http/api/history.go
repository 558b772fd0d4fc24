package api

import (
	"context"
	"net/http"

	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/domain/model"
)

// HistoryDependencies defines the history archive operations.
type HistoryDependencies interface {
	History(ctx context.Context) ([]model.HistoryRecord, error)
	AppendHistory(ctx context.Context, records []model.HistoryRecord) (service.HistoryResult, error)
}

// HistoryHandler handles /history requests.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

type historyBody struct {
	Records []model.HistoryRecord `json:"records"`
}

// HandleList handles GET /history.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.deps.History(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []model.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, historyBody{Records: records})
}

// HandleAppend handles POST /history. Re-posting the same rows is a no-op.
func (h *HistoryHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	var req historyBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := h.deps.AppendHistory(r.Context(), req.Records)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
