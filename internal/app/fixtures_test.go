package service_test

import (
	"fmt"

	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/internal/domain/model"
)

func stats(seed int) map[string]float64 {
	s := float64(17 - seed)
	return map[string]float64{
		model.StatWins:                   s + 10,
		model.StatLosses:                 float64(seed),
		model.StatAdjEfficiencyMargin:    s * 2,
		model.StatAdjOffensiveEfficiency: 100 + s,
		model.StatAdjDefensiveEfficiency: 100 - s,
		model.StatAdjTempo:               65,
		model.StatLuck:                   0.01 * s,
		model.StatStrengthOfSchedule:     s / 2,
		model.StatOppOffensiveEfficiency: 105,
		model.StatOppDefensiveEfficiency: 105,
		model.StatNonConfSOS:             s / 3,
	}
}

func odds(seed int) map[model.Round]float64 {
	p := 1 - float64(seed-1)/16
	return map[model.Round]float64{
		model.Round64:   1,
		model.Round32:   p,
		model.Sweet16:   p * p,
		model.Elite8:    p * p * p,
		model.FinalFour: p * p * p * p / 2,
		model.Final:     p * p * p * p / 4,
		model.Champion:  p * p * p * p / 8,
	}
}

// field returns a complete 68-team field for the default season.
func field() []model.Team {
	var teams []model.Team
	for _, region := range bracket.DefaultSeason().Regions {
		for seed := 1; seed <= 16; seed++ {
			teams = append(teams, model.Team{
				ID:     fmt.Sprintf("%s-%02d", region, seed),
				Name:   fmt.Sprintf("%s %d", region, seed),
				Seed:   seed,
				Region: region,
				Stats:  stats(seed),
				Odds:   odds(seed),
			})
		}
	}
	for _, p := range bracket.DefaultSeason().PlayIns {
		for i := range teams {
			if teams[i].Region == p.Region && teams[i].Seed == p.Seed {
				teams[i].Package = model.PackagePlayIn
			}
		}
		teams = append(teams, model.Team{
			ID:      fmt.Sprintf("%s-%02d-b", p.Region, p.Seed),
			Name:    fmt.Sprintf("%s %d b", p.Region, p.Seed),
			Seed:    p.Seed,
			Region:  p.Region,
			Package: model.PackagePlayIn,
			Stats:   stats(p.Seed),
			Odds:    odds(p.Seed),
		})
	}
	return teams
}

// history returns three reference years with the same 13600 pot.
func history() []model.HistoryRecord {
	var records []model.HistoryRecord
	for _, year := range []int{2019, 2022, 2023} {
		for seed := 1; seed <= 16; seed++ {
			records = append(records, model.HistoryRecord{
				Name:  fmt.Sprintf("team %c", 'a'+seed),
				Seed:  seed,
				Price: float64(100 * (17 - seed)),
				Year:  year,
			})
		}
	}
	return records
}
