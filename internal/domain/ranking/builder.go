// Package ranking builds and caches per-field team rankings.
package ranking

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
)

// Snapshot is an immutable, fully assembled rank cache.
type Snapshot struct {
	Generation uint64
	BuiltAt    time.Time
	// Fields lists the ranked field names in build order.
	Fields []string
	// ByTeam maps team id to field name to rank.
	ByTeam map[string]map[string]int
}

// Entries flattens the snapshot ordered by team id then field order.
func (s *Snapshot) Entries() []model.RankEntry {
	ids := make([]string, 0, len(s.ByTeam))
	for id := range s.ByTeam {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.RankEntry, 0, len(ids)*len(s.Fields))
	for _, id := range ids {
		ranks := s.ByTeam[id]
		for _, f := range s.Fields {
			if r, ok := ranks[f]; ok {
				out = append(out, model.RankEntry{TeamID: id, Field: f, Rank: r})
			}
		}
	}
	return out
}

// Ranks returns a copy of one team's ranks keyed by field name.
func (s *Snapshot) Ranks(teamID string) (map[string]int, bool) {
	ranks, ok := s.ByTeam[teamID]
	if !ok {
		return nil, false
	}
	return maps.Clone(ranks), true
}

// Len returns the number of rank entries in the snapshot.
func (s *Snapshot) Len() int {
	n := 0
	for _, ranks := range s.ByTeam {
		n += len(ranks)
	}
	return n
}

// Builder ranks teams across a fixed ordered field set.
type Builder struct {
	fields []Field
	log    logger.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithFields replaces the default field set.
func WithFields(fields []Field) BuilderOption {
	return func(b *Builder) {
		if len(fields) > 0 {
			b.fields = fields
		}
	}
}

// WithBuilderLogger sets the builder logger.
func WithBuilderLogger(l logger.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder returns a builder over DefaultFields unless overridden.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{fields: DefaultFields(), log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fields returns the builder's field set.
func (b *Builder) Fields() []Field {
	return slices.Clone(b.fields)
}

type rankedTeam struct {
	id    string
	value float64
}

// Build ranks every team on every field and assembles a snapshot. Any
// failure aborts the whole build; no partial snapshot is returned.
func (b *Builder) Build(ctx context.Context, teams []model.Team) (*Snapshot, error) {
	if len(b.fields) == 0 {
		return nil, ErrNoFields
	}

	ordered := make([]model.Team, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].ID == ordered[i-1].ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTeam, ordered[i].ID)
		}
	}

	results := make([]map[string]int, len(b.fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range b.fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ranks, err := rankField(f, ordered)
			if err != nil {
				return err
			}
			results[i] = ranks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byTeam := make(map[string]map[string]int, len(ordered))
	for _, t := range ordered {
		byTeam[t.ID] = make(map[string]int, len(b.fields))
	}
	var skipped []string
	for i, f := range b.fields {
		ranks := results[i]
		for _, t := range ordered {
			r, ok := ranks[t.ID]
			if !ok {
				if f.Optional {
					continue
				}
				return nil, fmt.Errorf("%w: team %s field %s", ErrMissingRank, t.ID, f.Name)
			}
			byTeam[t.ID][f.Name] = r
		}
		if missing := len(ordered) - len(ranks); missing > 0 {
			skipped = append(skipped, fmt.Sprintf("%s=%d", f.Name, missing))
		}
	}
	if len(skipped) > 0 {
		b.log.Debug(ctx, "optional fields skipped teams", logger.String("fields", strings.Join(skipped, ",")))
	}

	names := make([]string, len(b.fields))
	for i, f := range b.fields {
		names[i] = f.Name
	}
	return &Snapshot{BuiltAt: time.Now(), Fields: names, ByTeam: byTeam}, nil
}

// rankField ranks one field. A row whose value equals the previous row's
// reuses that row's rank; the position counter advances on every row, so a
// tie at position 2 followed by a new value yields 1,2,2,4.
func rankField(f Field, teams []model.Team) (map[string]int, error) {
	rows := make([]rankedTeam, 0, len(teams))
	for _, t := range teams {
		v, ok := f.Value(t)
		if !ok {
			if f.Optional {
				continue
			}
			return nil, fmt.Errorf("%w: team %s field %s", ErrMissingStat, t.ID, f.Name)
		}
		rows = append(rows, rankedTeam{id: t.ID, value: v})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if f.Direction == Ascending {
			return rows[i].value < rows[j].value
		}
		return rows[i].value > rows[j].value
	})

	ranks := make(map[string]int, len(rows))
	position, lastRank := 1, 0
	for i, row := range rows {
		if i == 0 || row.value != rows[i-1].value {
			lastRank = position
		}
		ranks[row.id] = lastRank
		position++
	}
	return ranks, nil
}
