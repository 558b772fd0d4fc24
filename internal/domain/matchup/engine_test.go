package matchup_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/internal/domain/matchup"
	"github.com/okian/calcutta/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func odds(p64, p32, p16, p8, p4, p2, p1 float64) map[model.Round]float64 {
	return map[model.Round]float64{
		model.Round64: p64, model.Round32: p32, model.Sweet16: p16, model.Elite8: p8,
		model.FinalFour: p4, model.Final: p2, model.Champion: p1,
	}
}

func field() []model.Team {
	var teams []model.Team
	for _, region := range []string{"north", "east", "west", "south"} {
		for seed := 1; seed <= 16; seed++ {
			teams = append(teams, model.Team{
				ID:     fmt.Sprintf("%s-%02d", region, seed),
				Seed:   seed,
				Region: region,
				Odds:   odds(1, 0.5, 0.25, 0.125, 0.0625, 0.03125, 0.015625),
			})
		}
	}
	for _, p := range bracket.DefaultSeason().PlayIns {
		teams = append(teams, model.Team{
			ID: fmt.Sprintf("%s-%02d-b", p.Region, p.Seed), Seed: p.Seed, Region: p.Region,
			Odds: odds(0.5, 0.1, 0.01, 0, 0, 0, 0),
		})
	}
	return teams
}

func setFlags(teams []model.Team, id string, fn func(*model.Team)) {
	for i := range teams {
		if teams[i].ID == id {
			fn(&teams[i])
		}
	}
}

func topology(t *testing.T) *bracket.Topology {
	t.Helper()
	topo, err := bracket.NewTopology(bracket.DefaultSeason())
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	return topo
}

func byID(nodes []matchup.Node) map[int]matchup.Node {
	out := make(map[int]matchup.Node, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n
	}
	return out
}

func TestWorkedExample(t *testing.T) {
	topo := topology(t)
	engine := matchup.NewEngine()

	Convey("Given a live one-seed with 0.9 odds of reaching the Sweet 16 and a 10000 pot", t, func() {
		teams := field()
		setFlags(teams, "north-01", func(tm *model.Team) {
			tm.Live = true
			tm.Odds = odds(1, 0.95, 0.9, 0.6, 0.4, 0.25, 0.15)
		})

		nodes, err := engine.Compute(context.Background(), topo, teams, 10000)
		So(err, ShouldBeNil)
		got := byID(nodes)

		Convey("Then its round-of-32 node carries 112.5 of live value", func() {
			So(got[9].LiveValue, ShouldAlmostEqual, 112.5, 1e-9)
			So(got[9].OwnedValue, ShouldEqual, 0)
		})

		Convey("Then first-round and play-in nodes are zero", func() {
			for _, n := range nodes {
				if n.Depth <= bracket.DepthRound64 {
					So(n.LiveValue, ShouldEqual, 0)
					So(n.OwnedValue, ShouldEqual, 0)
				}
			}
		})

		Convey("Then deeper nodes in scope use their own tier", func() {
			So(got[13].LiveValue, ShouldAlmostEqual, 0.6*0.025*10000, 1e-9)
			So(got[15].LiveValue, ShouldAlmostEqual, 0.4*0.05*10000, 1e-9)
			So(got[31].LiveValue, ShouldAlmostEqual, 0.25*0.1*10000, 1e-9)
			So(got[32].LiveValue, ShouldAlmostEqual, 0.15*0.2*10000, 1e-9)
			So(got[33].LiveValue, ShouldEqual, 0)
			So(got[24].LiveValue, ShouldEqual, 0)
		})
	})
}

func TestLiveAndOwnedSums(t *testing.T) {
	topo := topology(t)
	engine := matchup.NewEngine()

	Convey("Given owned and live teams across the bracket", t, func() {
		teams := field()
		for _, id := range []string{"east-03", "east-14", "east-06"} {
			setFlags(teams, id, func(tm *model.Team) { tm.Owned = true })
		}
		setFlags(teams, "east-11", func(tm *model.Team) { tm.Live = true })
		setFlags(teams, "east-06", func(tm *model.Team) { tm.Eliminated = true })

		const smartPot = 8000.0
		nodes, err := engine.Compute(context.Background(), topo, teams, smartPot)
		So(err, ShouldBeNil)
		got := byID(nodes)

		Convey("Then each paying node sums over its scope only", func() {
			// east pod {6,11,3,14} is node 16+10 = 26
			pod := got[26]
			So(pod.Tier, ShouldEqual, model.Sweet16)
			So(pod.OwnedValue, ShouldAlmostEqual, 2*0.25*0.0125*smartPot, 1e-9)
			So(pod.LiveValue, ShouldAlmostEqual, 0.25*0.0125*smartPot, 1e-9)
		})

		Convey("Then eliminated teams drop out of scope", func() {
			for _, n := range nodes {
				for _, side := range n.Sides {
					if n.Depth > bracket.DepthPlayIn {
						So(side, ShouldNotContain, "east-06")
					}
				}
			}
		})

		Convey("Then every paying node matches the formula", func() {
			payouts := topo.Payouts()
			for _, n := range nodes {
				if n.Depth < 2 {
					continue
				}
				live := 0.0
				for _, side := range n.Sides {
					for _, id := range side {
						for _, tm := range teams {
							if tm.ID == id && tm.Live {
								live += tm.Odds[n.Tier] * payouts.Share(n.Tier) * smartPot
							}
						}
					}
				}
				So(n.LiveValue, ShouldAlmostEqual, live, 1e-9)
			}
		})
	})
}

func TestComputeFailures(t *testing.T) {
	topo := topology(t)
	engine := matchup.NewEngine()

	Convey("Given inputs the engine must reject", t, func() {
		teams := field()

		Convey("When a live team lacks odds for a paying tier", func() {
			setFlags(teams, "west-05", func(tm *model.Team) {
				tm.Live = true
				delete(tm.Odds, model.Elite8)
			})
			nodes, err := engine.Compute(context.Background(), topo, teams, 1000)
			So(nodes, ShouldBeNil)
			So(errors.Is(err, matchup.ErrMissingOdds), ShouldBeTrue)
			So(errors.Is(err, model.ErrIntegrity), ShouldBeTrue)
		})

		Convey("When region labels do not bind", func() {
			setFlags(teams, "west-05", func(tm *model.Team) { tm.Region = "midwest" })
			_, err := engine.Compute(context.Background(), topo, teams, 1000)
			So(errors.Is(err, bracket.ErrRegionMismatch), ShouldBeTrue)
		})

		Convey("When the pot is not finite", func() {
			_, err := engine.Compute(context.Background(), topo, teams, math.NaN())
			So(errors.Is(err, matchup.ErrInvalidPot), ShouldBeTrue)
			_, err = engine.Compute(context.Background(), topo, teams, -1)
			So(errors.Is(err, matchup.ErrInvalidPot), ShouldBeTrue)
		})
	})
}

func TestSubsetValue(t *testing.T) {
	topo := topology(t)
	engine := matchup.NewEngine()

	Convey("Given a subset of two owned teams", t, func() {
		teams := field()
		setFlags(teams, "south-02", func(tm *model.Team) { tm.Owned = true })
		setFlags(teams, "north-09", func(tm *model.Team) { tm.Owned = true })

		v, err := engine.SubsetValue(topo, teams, 1000, func(tm model.Team) bool { return tm.Owned })
		So(err, ShouldBeNil)

		Convey("Then the value sums every paying tier", func() {
			perTeam := (0.25*0.0125 + 0.125*0.025 + 0.0625*0.05 + 0.03125*0.1 + 0.015625*0.2) * 1000
			So(v, ShouldAlmostEqual, 2*perTeam, 1e-9)
		})

		Convey("Then eliminated teams contribute nothing", func() {
			setFlags(teams, "south-02", func(tm *model.Team) { tm.Eliminated = true })
			v, err := engine.SubsetValue(topo, teams, 1000, func(tm model.Team) bool { return tm.Owned })
			So(err, ShouldBeNil)
			perTeam := (0.25*0.0125 + 0.125*0.025 + 0.0625*0.05 + 0.03125*0.1 + 0.015625*0.2) * 1000
			So(v, ShouldAlmostEqual, perTeam, 1e-9)
		})
	})
}
