package bracket

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/okian/calcutta/internal/domain/model"
)

// RegionCount is the number of regions in the bracket.
const RegionCount = 4

// PlayIn designates a seed slot decided by a preliminary game.
type PlayIn struct {
	Region string `toml:"region" json:"region"`
	Seed   int    `toml:"seed" json:"seed"`
}

// Season is the per-tournament configuration of the bracket.
type Season struct {
	Name string `toml:"name" json:"name"`
	// Regions are the four labels in bracket order; node ids follow it.
	Regions []string `toml:"regions" json:"regions"`
	// Semifinals pairs regions by index; the first pair feeds node 31.
	Semifinals [][]int  `toml:"semifinals" json:"semifinals"`
	PlayIns    []PlayIn `toml:"play_ins" json:"play_ins"`
	Payouts    []Payout `toml:"payouts" json:"payouts"`
}

// DefaultSeason returns the standard four-region format.
func DefaultSeason() Season {
	return Season{
		Name:       "default",
		Regions:    []string{"north", "east", "west", "south"},
		Semifinals: [][]int{{0, 2}, {1, 3}},
		PlayIns: []PlayIn{
			{Region: "north", Seed: 16},
			{Region: "west", Seed: 11},
			{Region: "east", Seed: 12},
			{Region: "south", Seed: 16},
		},
		Payouts: []Payout{
			{Tier: 1, Share: 0.2},
			{Tier: 2, Share: 0.1},
			{Tier: 4, Share: 0.05},
			{Tier: 8, Share: 0.025},
			{Tier: 16, Share: 0.0125},
		},
	}
}

// Validate checks labels, semifinal pairings, play-in slots and payouts.
func (s Season) Validate() error {
	if len(s.Regions) != RegionCount {
		return fmt.Errorf("%w: want %d regions, got %d", ErrInvalidSeason, RegionCount, len(s.Regions))
	}
	seen := make(map[string]bool, RegionCount)
	for _, r := range s.Regions {
		label := model.NormalizeRegion(r)
		if label == "" {
			return fmt.Errorf("%w: empty region label", ErrInvalidSeason)
		}
		if seen[label] {
			return fmt.Errorf("%w: region %q listed twice", ErrInvalidSeason, label)
		}
		seen[label] = true
	}

	if len(s.Semifinals) != 2 {
		return fmt.Errorf("%w: want 2 semifinals, got %d", ErrInvalidSeason, len(s.Semifinals))
	}
	covered := make([]bool, RegionCount)
	for _, pair := range s.Semifinals {
		if len(pair) != 2 {
			return fmt.Errorf("%w: semifinal %v must pair two regions", ErrInvalidSeason, pair)
		}
		for _, idx := range pair {
			if idx < 0 || idx >= RegionCount || covered[idx] {
				return fmt.Errorf("%w: semifinals must cover each region once, got %v", ErrInvalidSeason, s.Semifinals)
			}
			covered[idx] = true
		}
	}

	slots := make(map[string]bool, len(s.PlayIns))
	for _, p := range s.PlayIns {
		label := model.NormalizeRegion(p.Region)
		if !seen[label] {
			return fmt.Errorf("%w: play-in region %q is not a bracket region", ErrInvalidSeason, p.Region)
		}
		if p.Seed < model.MinSeed || p.Seed > model.MaxSeed {
			return fmt.Errorf("%w: play-in seed %d", ErrInvalidSeason, p.Seed)
		}
		key := fmt.Sprintf("%s/%d", label, p.Seed)
		if slots[key] {
			return fmt.Errorf("%w: play-in %s listed twice", ErrInvalidSeason, key)
		}
		slots[key] = true
	}

	if _, err := NewPayoutTable(s.Payouts); err != nil {
		return err
	}
	return nil
}

// ParseSeason decodes a TOML season document and validates it.
func ParseSeason(data []byte) (Season, error) {
	var s Season
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&s)
	if err != nil {
		return Season{}, fmt.Errorf("%w: decode: %w", ErrInvalidSeason, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Season{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidSeason, strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return Season{}, err
	}
	return s, nil
}

// LoadSeason reads and parses a TOML season file.
func LoadSeason(path string) (Season, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Season{}, fmt.Errorf("read season %s: %w", path, err)
	}
	return ParseSeason(data)
}
