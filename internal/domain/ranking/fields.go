package ranking

import (
	"strconv"

	"github.com/okian/calcutta/internal/domain/model"
)

// Direction tells which end of a field is better.
type Direction int

const (
	// Descending ranks the highest value first.
	Descending Direction = iota
	// Ascending ranks the lowest value first.
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Field is one ranked statistic.
type Field struct {
	Name      string
	Direction Direction
	// Optional fields skip teams without a value instead of failing the build.
	Optional bool
	Value    func(model.Team) (float64, bool)
}

func statField(name string, dir Direction) Field {
	return Field{
		Name:      name,
		Direction: dir,
		Value:     func(t model.Team) (float64, bool) { return t.Stat(name) },
	}
}

func oddsField(r model.Round) Field {
	return Field{
		Name:      OddsFieldName(r),
		Direction: Descending,
		Optional:  true,
		Value:     func(t model.Team) (float64, bool) { return t.OddsAt(r) },
	}
}

// OddsFieldName is the rank field name for the odds of reaching r.
func OddsFieldName(r model.Round) string {
	return "odds_to_advance_" + strconv.Itoa(int(r))
}

// DefaultFields returns the ordered field set ranked on every rebuild.
func DefaultFields() []Field {
	fields := []Field{
		statField(model.StatWins, Descending),
		statField(model.StatLosses, Ascending),
		statField(model.StatAdjEfficiencyMargin, Descending),
		statField(model.StatAdjOffensiveEfficiency, Descending),
		statField(model.StatAdjDefensiveEfficiency, Ascending),
		statField(model.StatAdjTempo, Descending),
		statField(model.StatLuck, Descending),
		statField(model.StatStrengthOfSchedule, Descending),
		statField(model.StatOppOffensiveEfficiency, Descending),
		statField(model.StatOppDefensiveEfficiency, Ascending),
		statField(model.StatNonConfSOS, Descending),
	}
	for _, r := range model.Rounds() {
		fields = append(fields, oddsField(r))
	}
	return fields
}
