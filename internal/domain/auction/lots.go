// Package auction groups teams into lots and computes auction transitions.
package auction

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/okian/calcutta/internal/domain/model"
)

// LotID returns the deterministic lot id of a seeded team.
func LotID(t model.Team) string {
	region := model.NormalizeRegion(t.Region)
	switch {
	case t.Seed >= model.HighSeedPooling:
		return fmt.Sprintf("%s:%s", model.LotHighSeed, region)
	case t.Package == model.PackagePlayIn:
		return fmt.Sprintf("%s:%s:%d", model.LotPlayIn, region, t.Seed)
	default:
		return fmt.Sprintf("%s:%s", model.LotSingle, t.ID)
	}
}

func lotKind(t model.Team) model.LotKind {
	switch {
	case t.Seed >= model.HighSeedPooling:
		return model.LotHighSeed
	case t.Package == model.PackagePlayIn:
		return model.LotPlayIn
	default:
		return model.LotSingle
	}
}

// BuildLots groups seeded teams: seeds 14 and above pool per region, play-in
// teams sharing a region and seed pool together, everyone else is sold alone.
// Lots are ordered by best seed, then id.
func BuildLots(teams []model.Team) []model.Lot {
	field := model.Seeded(teams)
	grouped := lo.GroupBy(field, LotID)

	lots := make([]model.Lot, 0, len(grouped))
	for id, members := range grouped {
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		lot := model.Lot{
			ID:      id,
			Kind:    lotKind(members[0]),
			Region:  model.NormalizeRegion(members[0].Region),
			Seeds:   lo.Uniq(lo.Map(members, func(t model.Team, _ int) int { return t.Seed })),
			TeamIDs: lo.Map(members, func(t model.Team, _ int) string { return t.ID }),
			Live:    lo.SomeBy(members, func(t model.Team) bool { return t.Live }),
			Sold:    lo.EveryBy(members, func(t model.Team) bool { return t.Sold }),
		}
		sort.Ints(lot.Seeds)
		lots = append(lots, lot)
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].Seeds[0] != lots[j].Seeds[0] {
			return lots[i].Seeds[0] < lots[j].Seeds[0]
		}
		return lots[i].ID < lots[j].ID
	})
	return lots
}

func findLot(teams []model.Team, lotID string) (model.Lot, []model.Team, error) {
	for _, lot := range BuildLots(teams) {
		if lot.ID != lotID {
			continue
		}
		members := lo.Filter(teams, func(t model.Team, _ int) bool { return lo.Contains(lot.TeamIDs, t.ID) })
		return lot, members, nil
	}
	return model.Lot{}, nil, fmt.Errorf("%w: %s", ErrLotNotFound, lotID)
}

func changeOf(t model.Team) model.AuctionChange {
	return model.AuctionChange{TeamID: t.ID, Live: t.Live, Owned: t.Owned, Sold: t.Sold, Price: t.Price}
}

// MakeLive returns the change set that puts lotID up for bid: every member
// goes live and every other live team is cleared, so exactly one lot is
// live once the set is applied.
func MakeLive(teams []model.Team, lotID string) ([]model.AuctionChange, error) {
	lot, members, err := findLot(teams, lotID)
	if err != nil {
		return nil, err
	}
	if lo.SomeBy(members, func(t model.Team) bool { return t.Sold }) {
		return nil, fmt.Errorf("%w: %s", ErrLotSold, lotID)
	}

	var changes []model.AuctionChange
	for _, t := range teams {
		member := lo.Contains(lot.TeamIDs, t.ID)
		if member == t.Live {
			continue
		}
		c := changeOf(t)
		c.Live = member
		changes = append(changes, c)
	}
	return changes, nil
}

// RecordSale returns the change set closing lotID at price: members are
// marked sold with the price split evenly, owned as given, and not live.
func RecordSale(teams []model.Team, lotID string, price float64, owned bool) ([]model.AuctionChange, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	_, members, err := findLot(teams, lotID)
	if err != nil {
		return nil, err
	}
	if lo.SomeBy(members, func(t model.Team) bool { return t.Sold }) {
		return nil, fmt.Errorf("%w: %s", ErrLotSold, lotID)
	}

	each := price / float64(len(members))
	changes := make([]model.AuctionChange, 0, len(members))
	for _, t := range members {
		p := each
		changes = append(changes, model.AuctionChange{TeamID: t.ID, Sold: true, Owned: owned, Price: &p})
	}
	return changes, nil
}
