package ranking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

// RankStore persists the materialized rank cache.
type RankStore interface {
	// ReplaceRanks clears and rewrites every entry in one transaction.
	ReplaceRanks(ctx context.Context, entries []model.RankEntry) error
	LoadRanks(ctx context.Context) ([]model.RankEntry, error)
}

// Cache publishes rank snapshots atomically. Readers always observe either
// the previous snapshot or the next one in full.
type Cache struct {
	builder *Builder
	store   RankStore
	log     logger.Logger

	// rebuildMu serializes rebuilds; readers never take it.
	rebuildMu sync.Mutex
	current   atomic.Pointer[Snapshot]
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore persists each snapshot before it is published.
func WithStore(s RankStore) CacheOption {
	return func(c *Cache) { c.store = s }
}

// WithBuilder overrides the default builder.
func WithBuilder(b *Builder) CacheOption {
	return func(c *Cache) {
		if b != nil {
			c.builder = b
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{builder: NewBuilder(), log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rebuild ranks teams from scratch, persists the result and swaps it in.
// On failure the previous snapshot stays published.
func (c *Cache) Rebuild(ctx context.Context, teams []model.Team) (*Snapshot, error) {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	start := time.Now()
	snap, err := c.builder.Build(ctx, teams)
	if err != nil {
		metrics.RecordRankRebuildError()
		metrics.RecordErrorByComponent("ranking", model.Kind(err))
		return nil, fmt.Errorf("rebuild ranks: %w", err)
	}

	var gen uint64 = 1
	if prev := c.current.Load(); prev != nil {
		gen = prev.Generation + 1
	}
	snap.Generation = gen

	if c.store != nil {
		if err := c.store.ReplaceRanks(ctx, snap.Entries()); err != nil {
			metrics.RecordRankRebuildError()
			metrics.RecordErrorByComponent("ranking", "persist")
			return nil, fmt.Errorf("persist ranks: %w", err)
		}
	}
	c.current.Store(snap)

	took := time.Since(start)
	metrics.RecordRankRebuild(took.Seconds(), gen, snap.Len())
	c.log.Info(ctx, "rank cache rebuilt",
		logger.Int64("generation", int64(gen)),
		logger.Int("teams", len(snap.ByTeam)),
		logger.Int("entries", snap.Len()),
		logger.Duration("took", took),
	)
	return snap, nil
}

// Restore seeds the cache from persisted entries. It is a no-op when the
// store is empty or absent.
func (c *Cache) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	entries, err := c.store.LoadRanks(ctx)
	if err != nil {
		return fmt.Errorf("load ranks: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	byTeam := make(map[string]map[string]int)
	for _, e := range entries {
		ranks, ok := byTeam[e.TeamID]
		if !ok {
			ranks = make(map[string]int)
			byTeam[e.TeamID] = ranks
		}
		ranks[e.Field] = e.Rank
	}
	fields := make([]string, 0, len(c.builder.fields))
	for _, f := range c.builder.fields {
		fields = append(fields, f.Name)
	}
	c.current.Store(&Snapshot{Generation: 1, BuiltAt: time.Now(), Fields: fields, ByTeam: byTeam})
	c.log.Info(ctx, "rank cache restored", logger.Int("entries", len(entries)))
	return nil
}

// Snapshot returns the published snapshot or nil before the first build.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Ranks returns one team's ranks keyed by field name.
func (c *Cache) Ranks(teamID string) (map[string]int, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNotBuilt
	}
	ranks, ok := snap.Ranks(teamID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, teamID)
	}
	return ranks, nil
}
