// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/calcutta/internal/app"
)

// maxBodyBytes caps request bodies; a full team push is well under this.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider
	TeamDependencies
	HistoryDependencies
	LotDependencies
	ValuationDependencies
	RankDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	teamsHandler     *TeamsHandler
	historyHandler   *HistoryHandler
	lotsHandler      *LotsHandler
	valuationHandler *ValuationHandler
	ranksHandler     *RanksHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		teamsHandler:     NewTeamsHandler(deps),
		historyHandler:   NewHistoryHandler(deps),
		lotsHandler:      NewLotsHandler(deps),
		valuationHandler: NewValuationHandler(deps),
		ranksHandler:     NewRanksHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /teams", MetricsMiddleware(s.teamsHandler.HandleList, "teams"))
	mux.HandleFunc("PUT /teams", MetricsMiddleware(s.teamsHandler.HandleRefresh, "teams"))
	mux.HandleFunc("GET /teams/{id}", MetricsMiddleware(s.teamsHandler.HandleGet, "team"))

	mux.HandleFunc("GET /history", MetricsMiddleware(s.historyHandler.HandleList, "history"))
	mux.HandleFunc("POST /history", MetricsMiddleware(s.historyHandler.HandleAppend, "history"))

	mux.HandleFunc("GET /lots", MetricsMiddleware(s.lotsHandler.HandleList, "lots"))
	mux.HandleFunc("POST /lots/{id}/live", MetricsMiddleware(s.lotsHandler.HandleMakeLive, "lot_live"))
	mux.HandleFunc("POST /lots/{id}/sale", MetricsMiddleware(s.lotsHandler.HandleSale, "lot_sale"))

	mux.HandleFunc("GET /valuation", MetricsMiddleware(s.valuationHandler.HandleValuation, "valuation"))
	mux.HandleFunc("GET /matchups", MetricsMiddleware(s.valuationHandler.HandleMatchups, "matchups"))

	mux.HandleFunc("POST /ranks/rebuild", MetricsMiddleware(s.ranksHandler.HandleRebuild, "ranks_rebuild"))
}

// The service satisfies every handler contract.
var _ Dependencies = (*service.Service)(nil)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps a service failure to its status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
