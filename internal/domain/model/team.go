// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Round names a bracket depth by the number of teams remaining in it.
type Round int

// Bracket rounds, from the opening round of 64 down to the champion.
const (
	Round64   Round = 64
	Round32   Round = 32
	Sweet16   Round = 16
	Elite8    Round = 8
	FinalFour Round = 4
	Final     Round = 2
	Champion  Round = 1
)

// Rounds lists every round from earliest to latest.
func Rounds() []Round {
	return []Round{Round64, Round32, Sweet16, Elite8, FinalFour, Final, Champion}
}

// Valid reports whether r is one of the bracket rounds.
func (r Round) Valid() bool {
	switch r {
	case Round64, Round32, Sweet16, Elite8, FinalFour, Final, Champion:
		return true
	}
	return false
}

// Package flags a team whose first-round slot is shared with others.
type Package string

const (
	PackageNone     Package = ""
	PackageHighSeed Package = "high-seed"
	PackagePlayIn   Package = "playin"
)

// Seed bounds.
const (
	MinSeed         = 1
	MaxSeed         = 16
	HighSeedPooling = 14 // seeds at or above this are auctioned as one group
)

// Stat names used for ranking and ingestion.
const (
	StatWins                   = "wins"
	StatLosses                 = "losses"
	StatAdjEfficiencyMargin    = "adjusted_efficiency_margin"
	StatAdjOffensiveEfficiency = "adjusted_offensive_efficiency"
	StatAdjDefensiveEfficiency = "adjusted_defensive_efficiency"
	StatAdjTempo               = "adjusted_tempo"
	StatLuck                   = "luck"
	StatStrengthOfSchedule     = "strength_of_schedule"
	StatOppOffensiveEfficiency = "opponent_adjusted_offensive_efficiency"
	StatOppDefensiveEfficiency = "opponent_adjusted_defensive_efficiency"
	StatNonConfSOS             = "non_conference_strength_of_schedule"
)

// Team is one tournament participant together with its auction state.
type Team struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Conference string             `json:"conference,omitempty"`
	Stats      map[string]float64 `json:"stats,omitempty"`

	Seed    int     `json:"seed"`
	Region  string  `json:"region,omitempty"`
	Package Package `json:"package,omitempty"`

	// Odds holds the externally supplied probability of reaching each round.
	Odds map[Round]float64 `json:"odds,omitempty"`

	Live       bool     `json:"live"`
	Owned      bool     `json:"owned"`
	Sold       bool     `json:"sold"`
	Eliminated bool     `json:"eliminated"`
	Price      *float64 `json:"price,omitempty"`
}

// Slug derives the stable team key: letters only, lower-cased.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// NormalizeRegion canonicalizes a region label for comparisons.
func NormalizeRegion(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Stat returns the named statistic and whether it is present.
func (t Team) Stat(name string) (float64, bool) {
	v, ok := t.Stats[name]
	return v, ok
}

// OddsAt returns the probability of reaching round r and whether it is present.
func (t Team) OddsAt(r Round) (float64, bool) {
	v, ok := t.Odds[r]
	return v, ok
}

// InField reports whether the team is seeded into the tournament.
func (t Team) InField() bool {
	return t.Seed >= MinSeed && t.Seed <= MaxSeed
}

// Validate checks the record invariants that do not depend on other teams.
func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: team %q has no id", ErrDataShape, t.Name)
	}
	if t.Seed < 0 || t.Seed > MaxSeed {
		return fmt.Errorf("%w: team %s has seed %d", ErrDataShape, t.ID, t.Seed)
	}
	switch t.Package {
	case PackageNone, PackageHighSeed, PackagePlayIn:
	default:
		return fmt.Errorf("%w: team %s has package %q", ErrDataShape, t.ID, t.Package)
	}
	if t.Sold != (t.Price != nil) {
		return fmt.Errorf("%w: team %s: price must be set exactly when sold", ErrDataShape, t.ID)
	}
	if t.Price != nil && (math.IsNaN(*t.Price) || math.IsInf(*t.Price, 0) || *t.Price < 0) {
		return fmt.Errorf("%w: team %s has price %v", ErrDataShape, t.ID, *t.Price)
	}
	for name, v := range t.Stats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: team %s stat %s is not finite", ErrDataShape, t.ID, name)
		}
	}

	prev, havePrev := 0.0, false
	for _, r := range Rounds() {
		p, ok := t.Odds[r]
		if !ok {
			continue
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: team %s odds for round %d out of range: %v", ErrDataShape, t.ID, r, p)
		}
		if havePrev && p > prev {
			return fmt.Errorf("%w: team %s odds increase at round %d", ErrDataShape, t.ID, r)
		}
		prev, havePrev = p, true
	}
	for r := range t.Odds {
		if !r.Valid() {
			return fmt.Errorf("%w: team %s has odds for unknown round %d", ErrDataShape, t.ID, r)
		}
	}
	return nil
}

// SeedGroup maps a seed to its valuation group: 1..13 are their own group,
// 14..16 collapse into group 14. It returns false for seeds outside 1..16.
func SeedGroup(seed int) (int, bool) {
	switch {
	case seed < MinSeed || seed > MaxSeed:
		return 0, false
	case seed >= HighSeedPooling:
		return HighSeedPooling, true
	default:
		return seed, true
	}
}

// SeedGroups lists every valuation group key.
func SeedGroups() []int {
	groups := make([]int, 0, HighSeedPooling)
	for g := MinSeed; g <= HighSeedPooling; g++ {
		groups = append(groups, g)
	}
	return groups
}

// Seeded returns the teams that are part of the tournament field.
func Seeded(teams []Team) []Team {
	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		if t.InField() {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate the result freely.
func (t Team) Clone() Team {
	c := t
	if t.Stats != nil {
		c.Stats = make(map[string]float64, len(t.Stats))
		for k, v := range t.Stats {
			c.Stats[k] = v
		}
	}
	if t.Odds != nil {
		c.Odds = make(map[Round]float64, len(t.Odds))
		for k, v := range t.Odds {
			c.Odds[k] = v
		}
	}
	if t.Price != nil {
		p := *t.Price
		c.Price = &p
	}
	return c
}
