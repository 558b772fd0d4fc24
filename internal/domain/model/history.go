package model

import (
	"fmt"
	"math"
	"strconv"
)

// HistoryRecord is one archived sale from a past tournament.
type HistoryRecord struct {
	Name  string  `json:"name"`
	Seed  int     `json:"seed"`
	Price float64 `json:"price"`
	Year  int     `json:"year"`
}

// Key identifies the record for idempotent appends: team slug plus year.
func (h HistoryRecord) Key() string {
	return Slug(h.Name) + ":" + strconv.Itoa(h.Year)
}

// Validate checks a single history row.
func (h HistoryRecord) Validate() error {
	if Slug(h.Name) == "" {
		return fmt.Errorf("%w: history record without a team name", ErrDataShape)
	}
	if h.Seed < MinSeed || h.Seed > MaxSeed {
		return fmt.Errorf("%w: history %s has seed %d", ErrDataShape, h.Key(), h.Seed)
	}
	if math.IsNaN(h.Price) || math.IsInf(h.Price, 0) || h.Price < 0 {
		return fmt.Errorf("%w: history %s has price %v", ErrDataShape, h.Key(), h.Price)
	}
	if h.Year <= 0 {
		return fmt.Errorf("%w: history record %q has year %d", ErrDataShape, h.Name, h.Year)
	}
	return nil
}
