// Package pot estimates the prize pool and per-seed spend shares from
// historical auction results.
package pot

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
)

// Estimate is the aggregate view of the history set.
type Estimate struct {
	TotalPotByYear map[int]float64 `json:"total_pot_by_year"`
	// ReferenceYears are the allow-listed years actually present.
	ReferenceYears  []int   `json:"reference_years"`
	AverageTotalPot float64 `json:"average_total_pot"`
	// ShareByYear maps year to seed group to the fraction of that year's pot.
	// Every group is present for every usable year.
	ShareByYear map[int]map[int]float64 `json:"share_by_year"`
	// ShareBySeed is the mean of ShareByYear across usable years.
	ShareBySeed map[int]float64 `json:"share_by_seed"`
	// ShareYears are the years that contributed to ShareBySeed.
	ShareYears []int `json:"share_years"`
	// SkippedYears had a zero pot and were left out of the share mean.
	SkippedYears []int `json:"skipped_years,omitempty"`
}

// Estimator computes an Estimate from history records.
type Estimator struct {
	referenceYears []int
	log            logger.Logger
}

// NewEstimator returns an estimator using DefaultReferenceYears.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		referenceYears: slices.Clone(DefaultReferenceYears),
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReferenceYears returns the configured allow-list.
func (e *Estimator) ReferenceYears() []int {
	return slices.Clone(e.referenceYears)
}

// Estimate aggregates records. The result never carries NaN or Inf: empty
// populations are reported as insufficient data.
func (e *Estimator) Estimate(ctx context.Context, records []model.HistoryRecord) (Estimate, error) {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return Estimate{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
	}

	byYear := lo.GroupBy(records, func(r model.HistoryRecord) int { return r.Year })
	years := lo.Keys(byYear)
	slices.Sort(years)

	totals := make(map[int]float64, len(years))
	for _, y := range years {
		totals[y] = lo.SumBy(byYear[y], func(r model.HistoryRecord) float64 { return r.Price })
	}

	refs := lo.Uniq(lo.Filter(e.referenceYears, func(y int, _ int) bool {
		_, ok := totals[y]
		return ok
	}))
	slices.Sort(refs)
	if len(refs) == 0 {
		return Estimate{}, fmt.Errorf("%w: want one of %v", ErrNoReferenceYears, e.referenceYears)
	}
	average := stat.Mean(lo.Map(refs, func(y int, _ int) float64 { return totals[y] }), nil)

	est := Estimate{
		TotalPotByYear:  totals,
		ReferenceYears:  refs,
		AverageTotalPot: average,
		ShareByYear:     make(map[int]map[int]float64, len(years)),
		ShareBySeed:     make(map[int]float64, model.HighSeedPooling),
	}

	groups := model.SeedGroups()
	for _, y := range years {
		total := totals[y]
		if total <= 0 {
			est.SkippedYears = append(est.SkippedYears, y)
			continue
		}
		shares := make(map[int]float64, len(groups))
		for _, g := range groups {
			shares[g] = 0
		}
		for _, r := range byYear[y] {
			g, _ := model.SeedGroup(r.Seed)
			shares[g] += r.Price / total
		}
		est.ShareByYear[y] = shares
		est.ShareYears = append(est.ShareYears, y)
	}
	if len(est.ShareYears) == 0 {
		return Estimate{}, ErrNoUsableYears
	}

	for _, g := range groups {
		perYear := lo.Map(est.ShareYears, func(y int, _ int) float64 { return est.ShareByYear[y][g] })
		est.ShareBySeed[g] = stat.Mean(perYear, nil)
	}

	if len(est.SkippedYears) > 0 {
		e.log.Warn(ctx, "history years with zero pot skipped", logger.Any("years", est.SkippedYears))
	}
	e.log.Debug(ctx, "pot estimated",
		logger.Float64("average_total_pot", average),
		logger.Int("reference_years", len(refs)),
		logger.Int("share_years", len(est.ShareYears)),
	)
	return est, nil
}
