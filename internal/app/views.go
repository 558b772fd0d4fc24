package service

import (
	"context"
	"errors"

	"github.com/okian/calcutta/internal/domain/matchup"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/internal/domain/pot"
	"github.com/okian/calcutta/internal/domain/valuation"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

// Unavailable explains why a derived view could not be computed. Kind is
// one of the model error kinds.
type Unavailable struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// ValuationView is the pot estimate and per-team smart values.
type ValuationView struct {
	Estimate    *pot.Estimate         `json:"estimate,omitempty"`
	Values      []valuation.TeamValue `json:"values,omitempty"`
	SmartPot    float64               `json:"smart_pot"`
	Unavailable *Unavailable          `json:"unavailable,omitempty"`
}

// MatchupView is the expected value of every bracket node plus the totals
// for the live lot and the owned portfolio.
type MatchupView struct {
	SmartPot    float64        `json:"smart_pot"`
	Nodes       []matchup.Node `json:"nodes,omitempty"`
	LiveTotal   float64        `json:"live_total"`
	OwnedTotal  float64        `json:"owned_total"`
	Unavailable *Unavailable   `json:"unavailable,omitempty"`
}

// unavailable converts a classified domain failure into a view marker. Store
// and other unclassified errors are returned as-is.
func unavailable(ctx context.Context, log logger.Logger, view string, err error) (*Unavailable, error) {
	kind := model.Kind(err)
	if kind == "internal" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	metrics.RecordUnavailable(view, kind)
	log.Warn(ctx, "view unavailable",
		logger.String("view", view),
		logger.String("kind", kind),
		logger.Error(err),
	)
	return &Unavailable{Kind: kind, Reason: err.Error()}, nil
}

type valued struct {
	teams    []model.Team
	estimate pot.Estimate
	values   valuation.Valuation
}

func (s *Service) value(ctx context.Context) (valued, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return valued{}, err
	}
	history, err := s.store.ListHistory(ctx)
	if err != nil {
		return valued{}, err
	}
	est, err := s.estimator.Estimate(ctx, history)
	if err != nil {
		return valued{teams: teams}, err
	}
	values, err := valuation.Value(teams, est)
	if err != nil {
		return valued{teams: teams, estimate: est}, err
	}
	metrics.UpdatePot(est.AverageTotalPot, values.SmartPot)
	return valued{teams: teams, estimate: est, values: values}, nil
}

// Valuation recomputes the pot estimate and smart values.
func (s *Service) Valuation(ctx context.Context) (ValuationView, error) {
	v, err := s.value(ctx)
	if err != nil {
		u, err := unavailable(ctx, s.logger, "valuation", err)
		return ValuationView{Unavailable: u}, err
	}
	return ValuationView{
		Estimate: &v.estimate,
		Values:   v.values.Values,
		SmartPot: v.values.SmartPot,
	}, nil
}

// Matchups recomputes expected value for every bracket node.
func (s *Service) Matchups(ctx context.Context) (MatchupView, error) {
	v, err := s.value(ctx)
	if err != nil {
		u, err := unavailable(ctx, s.logger, "matchups", err)
		return MatchupView{Unavailable: u}, err
	}
	smartPot := v.values.SmartPot

	view := MatchupView{SmartPot: smartPot}
	view.Nodes, err = s.engine.Compute(ctx, s.topo, v.teams, smartPot)
	if err == nil {
		view.LiveTotal, err = s.engine.SubsetValue(s.topo, v.teams, smartPot, func(t model.Team) bool { return t.Live })
	}
	if err == nil {
		view.OwnedTotal, err = s.engine.SubsetValue(s.topo, v.teams, smartPot, func(t model.Team) bool { return t.Owned })
	}
	if err != nil {
		u, err := unavailable(ctx, s.logger, "matchups", err)
		return MatchupView{SmartPot: smartPot, Unavailable: u}, err
	}
	return view, nil
}
