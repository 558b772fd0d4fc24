// Package repository defines the persistence interfaces for teams, history
// and the materialized rank cache, plus an in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/calcutta/internal/domain/model"
)

// TeamStore persists team records and their auction state.
type TeamStore interface {
	// ListTeams returns every team ordered by id.
	ListTeams(ctx context.Context) ([]model.Team, error)
	// GetTeam returns ErrNotFound for unknown ids.
	GetTeam(ctx context.Context, id string) (model.Team, error)
	// UpsertTeams inserts or replaces whole records.
	UpsertTeams(ctx context.Context, teams []model.Team) error
	// ApplyAuction writes a lot transition in one step: either every change
	// lands or none does.
	ApplyAuction(ctx context.Context, changes []model.AuctionChange) error
}

// HistoryStore is the append-only archive of past sales.
type HistoryStore interface {
	ListHistory(ctx context.Context) ([]model.HistoryRecord, error)
	// AppendHistory skips records whose Key is already stored and returns
	// how many were added.
	AppendHistory(ctx context.Context, records []model.HistoryRecord) (int, error)
}

// RankStore persists the materialized rank cache.
type RankStore interface {
	ReplaceRanks(ctx context.Context, entries []model.RankEntry) error
	LoadRanks(ctx context.Context) ([]model.RankEntry, error)
}

// Store bundles every persistence concern.
type Store interface {
	TeamStore
	HistoryStore
	RankStore
	Ping(ctx context.Context) error
	Close() error
}
