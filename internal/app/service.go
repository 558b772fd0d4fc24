// Package service is the application context shared by the HTTP API and the
// command-line tools. It owns the store, the rank cache, the season topology
// and the auction lock; derived values are recomputed on every read.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	rebuildqueue "github.com/okian/calcutta/internal/adapters/mq/queue"
	"github.com/okian/calcutta/internal/adapters/mq/worker"
	"github.com/okian/calcutta/internal/adapters/repository"
	"github.com/okian/calcutta/internal/domain/auction"
	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/internal/domain/matchup"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/internal/domain/pot"
	"github.com/okian/calcutta/internal/domain/ranking"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

const (
	auctionLockKey  = "auction"
	defaultLockTTL  = 10 * time.Second
	defaultLockWait = 5 * time.Second
	defaultQueue    = 1
	shutdownTimeout = 30 * time.Second
)

// Service implements the dependencies required by the HTTP API.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ranks     *ranking.Cache
	topo      *bracket.Topology
	estimator *pot.Estimator
	engine    *matchup.Engine
	locker    auction.Locker
	queue     *rebuildqueue.InMemoryQueue
	rebuilder *worker.Rebuilder

	season         bracket.Season
	referenceYears []int
	lockTTL        time.Duration
	lockWait       time.Duration
	queueSize      int

	started bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// New constructs a Service. The season is validated here so a bad layout
// fails at startup rather than on the first matchup read.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		season:         bracket.DefaultSeason(),
		referenceYears: slices.Clone(pot.DefaultReferenceYears),
		lockTTL:        defaultLockTTL,
		lockWait:       defaultLockWait,
		queueSize:      defaultQueue,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithLogger(s.logger.Named("store")))
	}
	if s.locker == nil {
		s.locker = auction.NewLocalLocker()
	}

	topo, err := bracket.NewTopology(s.season)
	if err != nil {
		return nil, fmt.Errorf("season %q: %w", s.season.Name, err)
	}
	s.topo = topo
	s.ranks = ranking.NewCache(
		ranking.WithStore(s.store),
		ranking.WithLogger(s.logger.Named("ranking")),
	)
	s.estimator = pot.NewEstimator(
		pot.WithReferenceYears(s.referenceYears...),
		pot.WithLogger(s.logger.Named("pot")),
	)
	s.engine = matchup.NewEngine(matchup.WithLogger(s.logger.Named("matchup")))
	s.queue = rebuildqueue.NewInMemoryQueue(rebuildqueue.WithCapacity(s.queueSize))
	s.rebuilder = worker.NewRebuilder(s.queue, worker.TargetFunc(s.rebuildFromRequest),
		worker.WithLogger(s.logger))
	return s, nil
}

// Start restores the persisted rank cache and starts the rebuild worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting valuation service...")
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.ranks.Restore(ctx); err != nil {
		// a stale or missing materialization is rebuilt from teams below
		s.logger.Warn(ctx, "rank cache restore failed", logger.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.rebuilder.Run(runCtx)

	if s.ranks.Snapshot() == nil {
		s.RequestRebuild(ctx, "startup")
	}
	s.started = true
	s.logger.Info(ctx, "valuation service started",
		logger.String("season", s.season.Name),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains the rebuild worker and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping valuation service...")

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	var errs []error
	if err := s.rebuilder.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.started = false
	s.logger.Info(ctx, "valuation service stopped")
	return errors.Join(errs...)
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Topology returns the season topology.
func (s *Service) Topology() *bracket.Topology {
	return s.topo
}

// TeamDetail is one team with its current ranks.
type TeamDetail struct {
	model.Team
	Ranks      map[string]int `json:"ranks,omitempty"`
	Generation uint64         `json:"rank_generation,omitempty"`
}

// Teams returns every team.
func (s *Service) Teams(ctx context.Context) ([]model.Team, error) {
	return s.store.ListTeams(ctx)
}

// Team returns one team with its ranks. Ranks are absent until the team takes
// part in a rebuild.
func (s *Service) Team(ctx context.Context, id string) (TeamDetail, error) {
	t, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return TeamDetail{}, err
	}
	detail := TeamDetail{Team: t}
	if snap := s.ranks.Snapshot(); snap != nil {
		if ranks, ok := snap.Ranks(id); ok {
			detail.Ranks = ranks
			detail.Generation = snap.Generation
		}
	}
	return detail, nil
}

// History returns the archived sales.
func (s *Service) History(ctx context.Context) ([]model.HistoryRecord, error) {
	return s.store.ListHistory(ctx)
}

// Lots returns the auctionable lots with their live and sold flags.
func (s *Service) Lots(ctx context.Context) ([]model.Lot, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	return auction.BuildLots(teams), nil
}

// RefreshResult reports the outcome of a team push.
type RefreshResult struct {
	Upserted      int  `json:"upserted"`
	RebuildQueued bool `json:"rebuild_queued"`
}

// RefreshTeams validates and stores pushed team records. Stats, placement,
// odds and elimination are replaced; auction state already recorded for a
// team is kept. A rank rebuild is requested afterwards.
func (s *Service) RefreshTeams(ctx context.Context, teams []model.Team) (RefreshResult, error) {
	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		if err := t.Validate(); err != nil {
			return RefreshResult{}, err
		}
		if _, dup := seen[t.ID]; dup {
			return RefreshResult{}, fmt.Errorf("%w: %s", ErrDuplicateTeam, t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.InField() && !slices.Contains(s.topo.Regions(), model.NormalizeRegion(t.Region)) {
			return RefreshResult{}, fmt.Errorf("%w: team %s region %q", ErrUnknownRegion, t.ID, t.Region)
		}
	}

	// The merge reads auction state, so it must not interleave with a lot
	// transition.
	release, err := s.lockAuction(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	defer release()

	existing, err := s.store.ListTeams(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	current := make(map[string]model.Team, len(existing))
	for _, t := range existing {
		current[t.ID] = t
	}

	merged := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		if prev, ok := current[t.ID]; ok {
			t = model.AuctionChange{
				TeamID: t.ID, Live: prev.Live, Owned: prev.Owned, Sold: prev.Sold, Price: prev.Price,
			}.Apply(t)
		}
		merged = append(merged, t)
	}
	if err := s.store.UpsertTeams(ctx, merged); err != nil {
		return RefreshResult{}, err
	}
	s.logger.Info(ctx, "teams refreshed", logger.Int("teams", len(merged)))
	return RefreshResult{
		Upserted:      len(merged),
		RebuildQueued: s.RequestRebuild(ctx, "teams refreshed"),
	}, nil
}

// HistoryResult reports the outcome of a history append.
type HistoryResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
}

// AppendHistory validates and appends records; rows already stored for the
// same team and year are skipped.
func (s *Service) AppendHistory(ctx context.Context, records []model.HistoryRecord) (HistoryResult, error) {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return HistoryResult{}, err
		}
	}
	added, err := s.store.AppendHistory(ctx, records)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Added: added, Duplicates: len(records) - added}, nil
}

// RebuildRanks rebuilds the rank cache synchronously.
func (s *Service) RebuildRanks(ctx context.Context) (*ranking.Snapshot, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	return s.ranks.Rebuild(ctx, teams)
}

// RequestRebuild queues an asynchronous rebuild. It returns false when one
// is already pending.
func (s *Service) RequestRebuild(ctx context.Context, reason string) bool {
	queued := s.queue.Enqueue(ctx, model.RebuildRequest{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedAt: time.Now(),
	})
	if !queued {
		s.logger.Debug(ctx, "rank rebuild already pending", logger.String("reason", reason))
	}
	return queued
}

func (s *Service) rebuildFromRequest(ctx context.Context, _ model.RebuildRequest) error {
	_, err := s.RebuildRanks(ctx)
	return err
}

// RankSnapshot returns the published rank snapshot or nil.
func (s *Service) RankSnapshot() *ranking.Snapshot {
	return s.ranks.Snapshot()
}

// MakeLive puts a lot up for bidding and clears whatever was live before.
func (s *Service) MakeLive(ctx context.Context, lotID string) ([]model.AuctionChange, error) {
	return s.transition(ctx, "live", func(teams []model.Team) ([]model.AuctionChange, error) {
		return auction.MakeLive(teams, lotID)
	})
}

// RecordSale records the winning bid for a lot.
func (s *Service) RecordSale(ctx context.Context, lotID string, price float64, owned bool) ([]model.AuctionChange, error) {
	return s.transition(ctx, "sale", func(teams []model.Team) ([]model.AuctionChange, error) {
		return auction.RecordSale(teams, lotID, price, owned)
	})
}

// transition runs read, compute and apply under the auction lock.
func (s *Service) transition(
	ctx context.Context,
	name string,
	compute func([]model.Team) ([]model.AuctionChange, error),
) ([]model.AuctionChange, error) {
	release, err := s.lockAuction(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := compute(teams)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := s.store.ApplyAuction(ctx, changes); err != nil {
			return nil, err
		}
	}
	metrics.RecordLotTransition(name)
	s.logger.Info(ctx, "lot transition applied",
		logger.String("transition", name),
		logger.Int("changes", len(changes)),
	)
	return changes, nil
}

// lockAuction takes the auction lock, waiting at most lockWait.
func (s *Service) lockAuction(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	release, err := s.locker.Acquire(lockCtx, auctionLockKey, s.lockTTL)
	if err != nil {
		metrics.RecordErrorByComponent("auction", "lock")
		return nil, err
	}
	return release, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]any{
		"started":        started,
		"season":         s.season.Name,
		"queueLength":    s.queue.Len(),
		"queueSize":      s.queueSize,
		"referenceYears": s.estimator.ReferenceYears(),
	}
	if snap := s.ranks.Snapshot(); snap != nil {
		stats["rankGeneration"] = snap.Generation
		stats["rankedTeams"] = len(snap.ByTeam)
		stats["rankBuiltAt"] = snap.BuiltAt
	}
	if teams, err := s.store.ListTeams(ctx); err == nil {
		lots := auction.BuildLots(teams)
		sold := 0
		for _, l := range lots {
			if l.Sold {
				sold++
			}
		}
		stats["totalTeams"] = len(teams)
		stats["fieldTeams"] = len(model.Seeded(teams))
		stats["lots"] = len(lots)
		stats["lotsSold"] = sold
		metrics.UpdateTeams(len(teams))
	} else {
		stats["storeError"] = err.Error()
	}
	if history, err := s.store.ListHistory(ctx); err == nil {
		stats["historyRecords"] = len(history)
	}
	return stats
}
