package model

import "time"

// LotKind describes how the teams of a lot were grouped.
type LotKind string

const (
	LotSingle   LotKind = "single"
	LotHighSeed LotKind = "high-seed"
	LotPlayIn   LotKind = "playin"
)

// Lot is the auctioned unit: one team or a pooled set sold together.
type Lot struct {
	ID      string   `json:"id"`
	Kind    LotKind  `json:"kind"`
	Region  string   `json:"region,omitempty"`
	Seeds   []int    `json:"seeds"`
	TeamIDs []string `json:"team_ids"`
	Live    bool     `json:"live"`
	Sold    bool     `json:"sold"`
}

// AuctionChange is the per-team write produced by one lot transition.
type AuctionChange struct {
	TeamID string   `json:"team_id"`
	Live   bool     `json:"live"`
	Owned  bool     `json:"owned"`
	Sold   bool     `json:"sold"`
	Price  *float64 `json:"price,omitempty"`
}

// Apply returns t with the change's auction fields written onto it.
func (c AuctionChange) Apply(t Team) Team {
	t.Live = c.Live
	t.Owned = c.Owned
	t.Sold = c.Sold
	if c.Price != nil {
		p := *c.Price
		t.Price = &p
	} else {
		t.Price = nil
	}
	return t
}

// RankEntry is one team's rank within one statistic field.
type RankEntry struct {
	TeamID string `json:"team_id"`
	Field  string `json:"field"`
	Rank   int    `json:"rank"`
}

// RebuildRequest asks the rank cache to rebuild from the current teams.
type RebuildRequest struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}
