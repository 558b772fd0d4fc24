// Package bracket describes the single-elimination tree and binds it to
// the current team list.
package bracket

import (
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/okian/calcutta/internal/domain/model"
)

// Node ids of the fixed layout.
const (
	semifinal0ID   = 31
	championshipID = 32
	semifinal1ID   = 33
	firstPlayInID  = 64
)

// Node depths.
const (
	DepthPlayIn      = 0
	DepthRound64     = 1
	DepthChampion    = 6
	firstPayingDepth = 2
)

// PickAll keeps every team matching a side.
const PickAll = -1

// regionBases holds the first node id of each region block in bracket order.
var regionBases = [RegionCount]int{1, 16, 34, 49}

// firstRound lists the round-of-64 pairings in bracket order.
var firstRound = [8][2]int{
	{1, 16}, {8, 9}, {5, 12}, {4, 13}, {6, 11}, {3, 14}, {7, 10}, {2, 15},
}

// Side selects the teams feeding one half of a node.
type Side struct {
	Regions []string `json:"regions"`
	Seeds   []int    `json:"seeds"`
	// Pick selects one team by id order among the matches; PickAll keeps all.
	Pick int `json:"pick"`
}

func (s Side) matches(t model.Team) bool {
	return slices.Contains(s.Regions, model.NormalizeRegion(t.Region)) && slices.Contains(s.Seeds, t.Seed)
}

func merge(a, b Side) Side {
	regions := slices.Clone(a.Regions)
	for _, r := range b.Regions {
		if !slices.Contains(regions, r) {
			regions = append(regions, r)
		}
	}
	seeds := append(slices.Clone(a.Seeds), b.Seeds...)
	slices.Sort(seeds)
	return Side{Regions: regions, Seeds: slices.Compact(seeds), Pick: PickAll}
}

// Node is one bracket game.
type Node struct {
	ID    int    `json:"id"`
	Depth int    `json:"depth"`
	Label string `json:"label"`
	// Tier is the round the winner reaches.
	Tier  model.Round `json:"tier"`
	Sides [2]Side     `json:"sides"`
}

// Pays reports whether the node's tier carries a payout.
func (n Node) Pays() bool {
	return n.Depth >= firstPayingDepth
}

// Topology is the immutable node set for one season.
type Topology struct {
	season  Season
	regions []string
	payouts PayoutTable
	nodes   []Node
	byID    map[int]int
}

// NewTopology validates the season and generates its nodes.
func NewTopology(season Season) (*Topology, error) {
	if err := season.Validate(); err != nil {
		return nil, err
	}
	payouts, err := NewPayoutTable(season.Payouts)
	if err != nil {
		return nil, err
	}
	regions := make([]string, RegionCount)
	for i, r := range season.Regions {
		regions[i] = model.NormalizeRegion(r)
	}

	t := &Topology{season: season, regions: regions, payouts: payouts, byID: make(map[int]int)}
	regionRoot := make([]Side, RegionCount)
	for i, label := range regions {
		regionRoot[i] = t.addRegion(regionBases[i], label)
	}

	semiSides := make([]Side, 2)
	for i, id := range []int{semifinal0ID, semifinal1ID} {
		pair := season.Semifinals[i]
		a, b := regionRoot[pair[0]], regionRoot[pair[1]]
		t.add(Node{
			ID: id, Depth: 5, Tier: model.Final,
			Label: fmt.Sprintf("semifinal %s v %s", regions[pair[0]], regions[pair[1]]),
			Sides: [2]Side{a, b},
		})
		semiSides[i] = merge(a, b)
	}
	t.add(Node{
		ID: championshipID, Depth: DepthChampion, Tier: model.Champion,
		Label: "championship",
		Sides: [2]Side{semiSides[0], semiSides[1]},
	})

	for i, p := range season.PlayIns {
		label := model.NormalizeRegion(p.Region)
		side := func(pick int) Side {
			return Side{Regions: []string{label}, Seeds: []int{p.Seed}, Pick: pick}
		}
		t.add(Node{
			ID: firstPlayInID + i, Depth: DepthPlayIn, Tier: model.Round64,
			Label: fmt.Sprintf("%s play-in %d", label, p.Seed),
			Sides: [2]Side{side(0), side(1)},
		})
	}

	sort.Slice(t.nodes, func(i, j int) bool { return t.nodes[i].ID < t.nodes[j].ID })
	for i, n := range t.nodes {
		t.byID[n.ID] = i
	}
	return t, nil
}

// addRegion lays out one region's 15 nodes from its first id and returns
// the side covering the whole region.
func (t *Topology) addRegion(base int, label string) Side {
	round := make([]Side, 0, len(firstRound))
	for _, pair := range firstRound {
		round = append(round,
			Side{Regions: []string{label}, Seeds: []int{pair[0]}, Pick: PickAll},
			Side{Regions: []string{label}, Seeds: []int{pair[1]}, Pick: PickAll},
		)
	}

	id := base
	names := map[int]string{1: "round of 64", 2: "round of 32", 3: "sweet 16", 4: "elite 8"}
	tiers := map[int]model.Round{1: model.Round32, 2: model.Sweet16, 3: model.Elite8, 4: model.FinalFour}
	for depth := DepthRound64; len(round) > 1; depth++ {
		next := make([]Side, 0, len(round)/2)
		for i := 0; i < len(round); i += 2 {
			a, b := round[i], round[i+1]
			t.add(Node{
				ID: id, Depth: depth, Tier: tiers[depth],
				Label: fmt.Sprintf("%s %s %s", label, names[depth], seedLabel(a, b)),
				Sides: [2]Side{a, b},
			})
			id++
			next = append(next, merge(a, b))
		}
		round = next
	}
	return round[0]
}

func seedLabel(a, b Side) string {
	if len(a.Seeds) == 1 && len(b.Seeds) == 1 {
		return fmt.Sprintf("%dv%d", a.Seeds[0], b.Seeds[0])
	}
	return fmt.Sprintf("%v v %v", a.Seeds, b.Seeds)
}

func (t *Topology) add(n Node) {
	t.nodes = append(t.nodes, n)
}

// Season returns the season the topology was built from.
func (t *Topology) Season() Season { return t.season }

// Regions returns the normalized region labels in bracket order.
func (t *Topology) Regions() []string { return slices.Clone(t.regions) }

// Payouts returns the season payout table.
func (t *Topology) Payouts() PayoutTable { return t.payouts }

// Nodes returns every node ordered by id.
func (t *Topology) Nodes() []Node { return slices.Clone(t.nodes) }

// Node returns the node with id.
func (t *Topology) Node(id int) (Node, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// BoundNode is a node with each side resolved against the team list.
type BoundNode struct {
	Node
	Teams [2][]model.Team
}

// Scope returns the union of both sides.
func (b BoundNode) Scope() []model.Team {
	out := make([]model.Team, 0, len(b.Teams[0])+len(b.Teams[1]))
	return append(append(out, b.Teams[0]...), b.Teams[1]...)
}

// Bind validates region labels and slot occupancy against teams and
// resolves every node. Eliminated teams drop out of scope except in
// play-in games, where they still hold their slot.
func (t *Topology) Bind(teams []model.Team) ([]BoundNode, error) {
	field := model.Seeded(teams)
	sort.SliceStable(field, func(i, j int) bool { return field[i].ID < field[j].ID })

	perRegion := make(map[string]int, RegionCount)
	for _, tm := range field {
		label := model.NormalizeRegion(tm.Region)
		if !slices.Contains(t.regions, label) {
			return nil, fmt.Errorf("%w: team %s has region %q, want one of %v", ErrRegionMismatch, tm.ID, tm.Region, t.regions)
		}
		perRegion[label]++
	}
	for _, label := range t.regions {
		if perRegion[label] == 0 {
			return nil, fmt.Errorf("%w: no seeded team in region %q", ErrRegionMismatch, label)
		}
	}

	out := make([]BoundNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		b := BoundNode{Node: n}
		for i, side := range n.Sides {
			all := lo.Filter(field, func(tm model.Team, _ int) bool { return side.matches(tm) })
			switch {
			case n.Depth == DepthPlayIn:
				if len(all) != 2 {
					return nil, fmt.Errorf("%w: %s has %d teams, want 2", ErrUnresolvedSlot, n.Label, len(all))
				}
				b.Teams[i] = []model.Team{all[side.Pick]}
			case n.Depth == DepthRound64 && len(all) == 0:
				return nil, fmt.Errorf("%w: %s side %d has no team", ErrUnresolvedSlot, n.Label, i)
			default:
				b.Teams[i] = lo.Reject(all, func(tm model.Team, _ int) bool { return tm.Eliminated })
			}
		}
		out = append(out, b)
	}
	return out, nil
}

