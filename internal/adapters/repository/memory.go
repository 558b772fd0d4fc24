package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/calcutta/internal/domain/dedupe"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

// MemoryStore keeps everything in process. All writes take the write lock
// so a lot transition or a rank replacement is observed whole.
type MemoryStore struct {
	mu          sync.RWMutex
	teams       map[string]model.Team
	history     []model.HistoryRecord
	ranks       []model.RankEntry
	historyKeys dedupe.Deduper
	closed      bool
	log         logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		teams:       make(map[string]model.Team),
		historyKeys: dedupe.NewInMemoryDeduper(),
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) ListTeams(_ context.Context) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetTeam(_ context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Team{}, ErrClosed
	}

	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (s *MemoryStore) UpsertTeams(_ context.Context, teams []model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for _, t := range teams {
		s.teams[t.ID] = t.Clone()
	}
	metrics.UpdateTeams(len(s.teams))
	return nil
}

func (s *MemoryStore) ApplyAuction(ctx context.Context, changes []model.AuctionChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := make(map[string]model.Team, len(changes))
	for _, c := range changes {
		t, ok := s.teams[c.TeamID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTeam, c.TeamID)
		}
		updated := c.Apply(t.Clone())
		if err := updated.Validate(); err != nil {
			return err
		}
		next[c.TeamID] = updated
	}
	for id, t := range next {
		s.teams[id] = t
	}
	s.log.Debug(ctx, "auction change applied", logger.Int("teams", len(next)))
	return nil
}

func (s *MemoryStore) ListHistory(_ context.Context) ([]model.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]model.HistoryRecord(nil), s.history...), nil
}

func (s *MemoryStore) AppendHistory(ctx context.Context, records []model.HistoryRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	added := 0
	for _, r := range records {
		if s.historyKeys.SeenAndRecord(ctx, r.Key()) {
			continue
		}
		s.history = append(s.history, r)
		added++
	}
	metrics.RecordHistoryAppend(added, len(records)-added)
	return added, nil
}

func (s *MemoryStore) ReplaceRanks(_ context.Context, entries []model.RankEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.ranks = append([]model.RankEntry(nil), entries...)
	return nil
}

func (s *MemoryStore) LoadRanks(_ context.Context) ([]model.RankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]model.RankEntry(nil), s.ranks...), nil
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed; later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
