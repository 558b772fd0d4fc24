// Package ingest reads team and history CSV exports and loads them into a
// running service or a remote server.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/okian/calcutta/internal/domain/model"
)

// Column names understood by ReadTeams. Stat columns take the model stat
// name or the camelCase name used by the ratings export.
const (
	colID         = "id"
	colName       = "name"
	colTeam       = "team"
	colConference = "conference"
	colSeed       = "seed"
	colRegion     = "region"
	colPackage    = "package"
	colEliminated = "eliminated"
	colPrice      = "price"
	colYear       = "year"
)

var statNames = []string{
	model.StatWins,
	model.StatLosses,
	model.StatAdjEfficiencyMargin,
	model.StatAdjOffensiveEfficiency,
	model.StatAdjDefensiveEfficiency,
	model.StatAdjTempo,
	model.StatLuck,
	model.StatStrengthOfSchedule,
	model.StatOppOffensiveEfficiency,
	model.StatOppDefensiveEfficiency,
	model.StatNonConfSOS,
}

// statAliases keys stat names with separators removed, plus the names the
// ratings export uses where they differ.
var statAliases = func() map[string]string {
	m := make(map[string]string, len(statNames)+3)
	for _, name := range statNames {
		m[strings.ReplaceAll(name, "_", "")] = name
	}
	m["adjustedefficiency"] = model.StatAdjEfficiencyMargin
	m["averageopponentadjustedoffensiveefficiency"] = model.StatOppOffensiveEfficiency
	m["averageopponentadjusteddefensiveefficiency"] = model.StatOppDefensiveEfficiency
	return m
}()

// header maps normalized column names to their index.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	row, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadValue, err)
	}
	h := make(header, len(row))
	for i, name := range row {
		h[normalizeColumn(name)] = i
	}
	return h, nil
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

func (h header) require(names ...string) error {
	missing := lo.Filter(names, func(n string, _ int) bool {
		_, ok := h[n]
		return !ok
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

func (h header) get(row []string, name string) (string, bool) {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func parseFloat(line int, column, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, column, raw)
	}
	if strings.HasSuffix(raw, "%") {
		v /= 100
	}
	return v, nil
}

func parseInt(line int, column, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, column, raw)
	}
	return v, nil
}

// ReadHistory decodes name,seed,price,year rows. Column order is free.
func ReadHistory(r io.Reader) ([]model.HistoryRecord, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := h.require(colName, colSeed, colPrice, colYear); err != nil {
		return nil, err
	}

	var records []model.HistoryRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadValue, line, err)
		}
		name, _ := h.get(row, colName)
		seedRaw, _ := h.get(row, colSeed)
		priceRaw, _ := h.get(row, colPrice)
		yearRaw, _ := h.get(row, colYear)

		rec := model.HistoryRecord{Name: name}
		if rec.Seed, err = parseInt(line, colSeed, seedRaw); err != nil {
			return nil, err
		}
		if rec.Price, err = parseFloat(line, colPrice, priceRaw); err != nil {
			return nil, err
		}
		if rec.Year, err = parseInt(line, colYear, yearRaw); err != nil {
			return nil, err
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

// oddsColumn returns the round an odds header names: odds_64 or
// oddsToAdvance_64.
func oddsColumn(name string) (model.Round, bool) {
	for _, prefix := range []string{"odds_", "oddstoadvance_"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return 0, false
			}
			r := model.Round(n)
			return r, r.Valid()
		}
	}
	return 0, false
}

// statColumn resolves a header to a model stat name.
func statColumn(name string) (string, bool) {
	if s, ok := statAliases[strings.ReplaceAll(name, "_", "")]; ok {
		return s, true
	}
	return "", false
}

// ReadTeams decodes a header-driven team export. A name (or team) and a seed
// column are required; ids default to the name slug. Empty cells are
// skipped so a team may lack a stat or an odds value.
func ReadTeams(r io.Reader) ([]model.Team, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	nameCol := colName
	if _, ok := h[colName]; !ok {
		nameCol = colTeam
	}
	if err := h.require(nameCol, colSeed); err != nil {
		return nil, err
	}

	stats := map[string]string{}
	odds := map[string]model.Round{}
	for name := range h {
		if s, ok := statColumn(name); ok {
			stats[name] = s
		} else if round, ok := oddsColumn(name); ok {
			odds[name] = round
		}
	}

	var teams []model.Team
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return teams, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadValue, line, err)
		}
		t, err := decodeTeam(line, h, row, nameCol, stats, odds)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
}

func decodeTeam(line int, h header, row []string, nameCol string, stats map[string]string, odds map[string]model.Round) (model.Team, error) {
	var t model.Team
	var err error

	t.Name, _ = h.get(row, nameCol)
	t.ID, _ = h.get(row, colID)
	if t.ID == "" {
		t.ID = model.Slug(t.Name)
	}
	t.Conference, _ = h.get(row, colConference)
	if region, ok := h.get(row, colRegion); ok {
		t.Region = model.NormalizeRegion(region)
	}
	if pkg, ok := h.get(row, colPackage); ok && pkg != "null" {
		t.Package = model.Package(strings.ToLower(pkg))
	}
	if raw, _ := h.get(row, colSeed); raw != "" {
		if t.Seed, err = parseInt(line, colSeed, raw); err != nil {
			return model.Team{}, err
		}
	}
	if raw, ok := h.get(row, colEliminated); ok && raw != "" {
		if t.Eliminated, err = strconv.ParseBool(raw); err != nil {
			return model.Team{}, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, colEliminated, raw)
		}
	}

	for column, stat := range stats {
		raw, _ := h.get(row, column)
		if raw == "" {
			continue
		}
		v, err := parseFloat(line, column, raw)
		if err != nil {
			return model.Team{}, err
		}
		if t.Stats == nil {
			t.Stats = make(map[string]float64, len(stats))
		}
		t.Stats[stat] = v
	}
	for column, round := range odds {
		raw, _ := h.get(row, column)
		if raw == "" {
			continue
		}
		v, err := parseFloat(line, column, raw)
		if err != nil {
			return model.Team{}, err
		}
		if t.Odds == nil {
			t.Odds = make(map[model.Round]float64, len(odds))
		}
		t.Odds[round] = v
	}

	if err := t.Validate(); err != nil {
		return model.Team{}, fmt.Errorf("line %d: %w", line, err)
	}
	return t, nil
}
