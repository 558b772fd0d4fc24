package bracket

import (
	"fmt"
	"math"

	"github.com/okian/calcutta/internal/domain/model"
)

const shareTolerance = 1e-9

// Payout is one tier's per-slot fraction of the pot.
type Payout struct {
	Tier  int     `toml:"tier" json:"tier"`
	Share float64 `toml:"share" json:"share"`
}

// PayoutTable maps a tier, named by teams remaining, to its per-slot share.
type PayoutTable map[model.Round]float64

// NewPayoutTable validates payouts and indexes them by tier. Only tiers from
// the Sweet 16 onward pay, and shares over every slot must sum to 1.
func NewPayoutTable(payouts []Payout) (PayoutTable, error) {
	t := make(PayoutTable, len(payouts))
	total := 0.0
	for _, p := range payouts {
		r := model.Round(p.Tier)
		if !r.Valid() || r > model.Sweet16 {
			return nil, fmt.Errorf("%w: payout tier %d does not pay", ErrInvalidSeason, p.Tier)
		}
		if _, dup := t[r]; dup {
			return nil, fmt.Errorf("%w: payout tier %d listed twice", ErrInvalidSeason, p.Tier)
		}
		if p.Share <= 0 || math.IsNaN(p.Share) || math.IsInf(p.Share, 0) {
			return nil, fmt.Errorf("%w: payout tier %d share %v", ErrInvalidSeason, p.Tier, p.Share)
		}
		t[r] = p.Share
		total += p.Share * float64(r)
	}
	if math.Abs(total-1) > shareTolerance {
		return nil, fmt.Errorf("%w: payout shares sum to %v over all slots", ErrInvalidSeason, total)
	}
	return t, nil
}

// Share returns the per-slot share for tier, zero for non-paying tiers.
func (t PayoutTable) Share(tier model.Round) float64 {
	return t[tier]
}

// Tiers lists paying tiers from earliest to latest.
func (t PayoutTable) Tiers() []model.Round {
	out := make([]model.Round, 0, len(t))
	for _, r := range model.Rounds() {
		if _, ok := t[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
