package api

import (
	"context"
	"net/http"

	service "github.com/okian/calcutta/internal/app"
)

// ValuationDependencies defines the derived read views.
type ValuationDependencies interface {
	Valuation(ctx context.Context) (service.ValuationView, error)
	Matchups(ctx context.Context) (service.MatchupView, error)
}

// ValuationHandler handles /valuation and /matchups requests. A view that
// cannot be computed from the current data still returns 200 with its
// unavailable marker set.
type ValuationHandler struct {
	deps ValuationDependencies
}

// NewValuationHandler creates a new valuation handler.
func NewValuationHandler(deps ValuationDependencies) *ValuationHandler {
	return &ValuationHandler{deps: deps}
}

// HandleValuation handles GET /valuation.
func (h *ValuationHandler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Valuation(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleMatchups handles GET /matchups.
func (h *ValuationHandler) HandleMatchups(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Matchups(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
