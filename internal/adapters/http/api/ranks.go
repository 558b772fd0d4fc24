package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/calcutta/internal/domain/ranking"
)

// RankDependencies defines the rank cache operations.
type RankDependencies interface {
	RebuildRanks(ctx context.Context) (*ranking.Snapshot, error)
	RequestRebuild(ctx context.Context, reason string) bool
}

// RanksHandler handles /ranks requests.
type RanksHandler struct {
	deps RankDependencies
}

// NewRanksHandler creates a new ranks handler.
func NewRanksHandler(deps RankDependencies) *RanksHandler {
	return &RanksHandler{deps: deps}
}

type rebuildResponse struct {
	Generation uint64    `json:"generation"`
	Teams      int       `json:"teams"`
	Entries    int       `json:"entries"`
	BuiltAt    time.Time `json:"built_at"`
}

type queuedResponse struct {
	Queued bool `json:"queued"`
}

// HandleRebuild handles POST /ranks/rebuild. With ?async=true the rebuild is
// queued and the response reports whether one was already pending.
func (h *RanksHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("async"); raw != "" {
		async, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if async {
			writeJSON(w, http.StatusAccepted, queuedResponse{Queued: h.deps.RequestRebuild(r.Context(), "api")})
			return
		}
	}

	snap, err := h.deps.RebuildRanks(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{
		Generation: snap.Generation,
		Teams:      len(snap.ByTeam),
		Entries:    snap.Len(),
		BuiltAt:    snap.BuiltAt,
	})
}
