package api

import (
	"context"
	"net/http"

	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/domain/model"
)

// TeamDependencies defines the team read and ingestion operations.
type TeamDependencies interface {
	Teams(ctx context.Context) ([]model.Team, error)
	Team(ctx context.Context, id string) (service.TeamDetail, error)
	RefreshTeams(ctx context.Context, teams []model.Team) (service.RefreshResult, error)
}

// TeamsHandler handles /teams requests.
type TeamsHandler struct {
	deps TeamDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

type teamsResponse struct {
	Teams []model.Team `json:"teams"`
}

// HandleList handles GET /teams.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.Teams(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, http.StatusOK, teamsResponse{Teams: teams})
}

// HandleGet handles GET /teams/{id}.
func (h *TeamsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.deps.Team(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleRefresh handles PUT /teams with a {"teams": [...]} body.
func (h *TeamsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req teamsResponse
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := h.deps.RefreshTeams(r.Context(), req.Teams)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
