// Package valuation blends realized sale prices with seed-based predictions.
package valuation

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/internal/domain/pot"
)

// TeamValue is one team's smart value.
type TeamValue struct {
	TeamID string  `json:"team_id"`
	Seed   int     `json:"seed"`
	Value  float64 `json:"value"`
	// Realized is true when Value is the sale price.
	Realized bool `json:"realized"`
}

// Valuation is the per-team value set and its sum.
type Valuation struct {
	Values   []TeamValue `json:"values"`
	SmartPot float64     `json:"smart_pot"`
}

// ByTeam indexes values by team id.
func (v Valuation) ByTeam() map[string]TeamValue {
	return lo.KeyBy(v.Values, func(tv TeamValue) string { return tv.TeamID })
}

// Value computes every seeded team's smart value. Sold teams are valued at
// their price; the rest at their group's historical share split across
// the teams sharing that group, times the average total pot. Teams outside
// the field are not valued.
func Value(teams []model.Team, est pot.Estimate) (Valuation, error) {
	field := model.Seeded(teams)
	for _, t := range teams {
		if t.Seed != 0 && !t.InField() {
			return Valuation{}, fmt.Errorf("%w: team %s seed %d", ErrInvalidSeed, t.ID, t.Seed)
		}
	}

	groupSize := lo.CountValuesBy(field, func(t model.Team) int {
		g, _ := model.SeedGroup(t.Seed)
		return g
	})

	needsPrediction := lo.ContainsBy(field, func(t model.Team) bool { return !t.Sold })
	if needsPrediction && (est.AverageTotalPot <= 0 || math.IsNaN(est.AverageTotalPot) || math.IsInf(est.AverageTotalPot, 0)) {
		return Valuation{}, fmt.Errorf("%w: %v", ErrInvalidPot, est.AverageTotalPot)
	}

	out := Valuation{Values: make([]TeamValue, 0, len(field))}
	for _, t := range field {
		tv := TeamValue{TeamID: t.ID, Seed: t.Seed}
		if t.Sold {
			if t.Price == nil {
				return Valuation{}, fmt.Errorf("%w: %s", ErrSoldNoPrice, t.ID)
			}
			tv.Value = *t.Price
			tv.Realized = true
		} else {
			g, _ := model.SeedGroup(t.Seed)
			share, ok := est.ShareBySeed[g]
			if !ok {
				return Valuation{}, fmt.Errorf("%w: group %d", ErrMissingShare, g)
			}
			tv.Value = share / float64(groupSize[g]) * est.AverageTotalPot
		}
		out.Values = append(out.Values, tv)
	}

	// Summed in slice order so the pot equals the sum of the reported values.
	for _, tv := range out.Values {
		out.SmartPot += tv.Value
	}
	return out, nil
}
