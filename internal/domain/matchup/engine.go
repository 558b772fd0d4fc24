// Package matchup computes live and owned expected value at every bracket node.
package matchup

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

// Node is one bracket game with its expected values.
type Node struct {
	ID         int         `json:"id"`
	Depth      int         `json:"depth"`
	Label      string      `json:"label"`
	Tier       model.Round `json:"tier"`
	Sides      [2][]string `json:"sides"`
	LiveValue  float64     `json:"live_value"`
	OwnedValue float64     `json:"owned_value"`
}

// Engine evaluates expected value over a bound topology.
type Engine struct {
	log logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine returns an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func checkPot(smartPot float64) error {
	if math.IsNaN(smartPot) || math.IsInf(smartPot, 0) || smartPot < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPot, smartPot)
	}
	return nil
}

// teamEV is a team's expected payout from reaching tier.
func teamEV(t model.Team, tier model.Round, share, smartPot float64) (float64, error) {
	p, ok := t.OddsAt(tier)
	if !ok {
		return 0, fmt.Errorf("%w: team %s round %d", ErrMissingOdds, t.ID, tier)
	}
	return p * share * smartPot, nil
}

// Compute binds teams to the topology and values every node. Nodes before
// the round of 32 are always zero. Any integrity failure aborts the whole
// computation.
func (e *Engine) Compute(ctx context.Context, topo *bracket.Topology, teams []model.Team, smartPot float64) ([]Node, error) {
	if err := checkPot(smartPot); err != nil {
		return nil, err
	}
	start := time.Now()
	bound, err := topo.Bind(teams)
	if err != nil {
		return nil, err
	}
	payouts := topo.Payouts()

	out := make([]Node, 0, len(bound))
	for _, b := range bound {
		n := Node{ID: b.ID, Depth: b.Depth, Label: b.Label, Tier: b.Tier}
		for i, side := range b.Teams {
			ids := make([]string, len(side))
			for j, t := range side {
				ids[j] = t.ID
			}
			n.Sides[i] = ids
		}
		if b.Pays() {
			share := payouts.Share(b.Tier)
			for _, t := range b.Scope() {
				if !t.Live && !t.Owned {
					continue
				}
				ev, err := teamEV(t, b.Tier, share, smartPot)
				if err != nil {
					return nil, fmt.Errorf("node %d: %w", b.ID, err)
				}
				if t.Live {
					n.LiveValue += ev
				}
				if t.Owned {
					n.OwnedValue += ev
				}
			}
		}
		out = append(out, n)
	}

	metrics.RecordMatchupDuration(time.Since(start).Seconds())
	e.log.Debug(ctx, "matchups computed", logger.Int("nodes", len(out)), logger.Float64("smart_pot", smartPot))
	return out, nil
}

// SubsetValue is the total expected value of the teams selected by keep
// across every paying tier. Eliminated teams contribute nothing.
func (e *Engine) SubsetValue(topo *bracket.Topology, teams []model.Team, smartPot float64, keep func(model.Team) bool) (float64, error) {
	if err := checkPot(smartPot); err != nil {
		return 0, err
	}
	payouts := topo.Payouts()
	total := 0.0
	for _, t := range model.Seeded(teams) {
		if t.Eliminated || !keep(t) {
			continue
		}
		for _, tier := range payouts.Tiers() {
			ev, err := teamEV(t, tier, payouts.Share(tier), smartPot)
			if err != nil {
				return 0, err
			}
			total += ev
		}
	}
	return total, nil
}
