package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/calcutta/internal/domain/model"
)

// LotDependencies defines the auction operations.
type LotDependencies interface {
	Lots(ctx context.Context) ([]model.Lot, error)
	MakeLive(ctx context.Context, lotID string) ([]model.AuctionChange, error)
	RecordSale(ctx context.Context, lotID string, price float64, owned bool) ([]model.AuctionChange, error)
}

// LotsHandler handles /lots requests.
type LotsHandler struct {
	deps LotDependencies
}

// NewLotsHandler creates a new lots handler.
func NewLotsHandler(deps LotDependencies) *LotsHandler {
	return &LotsHandler{deps: deps}
}

type lotsResponse struct {
	Lots []model.Lot `json:"lots"`
}

type changesResponse struct {
	LotID   string                `json:"lot_id"`
	Changes []model.AuctionChange `json:"changes"`
}

type saleRequest struct {
	Price *float64 `json:"price"`
	Owned bool     `json:"owned"`
}

// HandleList handles GET /lots.
func (h *LotsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	lots, err := h.deps.Lots(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if lots == nil {
		lots = []model.Lot{}
	}
	writeJSON(w, http.StatusOK, lotsResponse{Lots: lots})
}

// HandleMakeLive handles POST /lots/{id}/live.
func (h *LotsHandler) HandleMakeLive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	changes, err := h.deps.MakeLive(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesResponse{LotID: id, Changes: nonNil(changes)})
}

// HandleSale handles POST /lots/{id}/sale with {"price": n, "owned": bool}.
func (h *LotsHandler) HandleSale(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req saleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Price == nil {
		writeDomainError(w, fmt.Errorf("%w: missing price", ErrBadRequest))
		return
	}
	changes, err := h.deps.RecordSale(r.Context(), id, *req.Price, req.Owned)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesResponse{LotID: id, Changes: nonNil(changes)})
}

func nonNil(changes []model.AuctionChange) []model.AuctionChange {
	if changes == nil {
		return []model.AuctionChange{}
	}
	return changes
}
