package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
)

// Target receives decoded rows.
type Target interface {
	PushTeams(ctx context.Context, teams []model.Team) (int, error)
	PushHistory(ctx context.Context, records []model.HistoryRecord) (added, duplicates int, err error)
	// WarmRanks rebuilds the rank cache and returns its generation.
	WarmRanks(ctx context.Context) (uint64, error)
}

// Source names the inputs of one import. Nil readers are skipped.
type Source struct {
	Teams   io.Reader
	History io.Reader
	Warm    bool
}

// Report summarizes an import.
type Report struct {
	Teams             int
	HistoryAdded      int
	HistoryDuplicates int
	Generation        uint64
	Elapsed           time.Duration
}

// Importer decodes a Source and hands it to a Target. Teams go first so a
// warm rebuild sees them.
type Importer struct {
	target Target
	log    logger.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l logger.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.log = l
		}
	}
}

// NewImporter returns an importer writing to target.
func NewImporter(target Target, opts ...Option) *Importer {
	i := &Importer{target: target, log: logger.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run decodes everything before writing anything, so a malformed file
// leaves the target untouched.
func (i *Importer) Run(ctx context.Context, src Source) (Report, error) {
	start := time.Now()
	var (
		teams   []model.Team
		history []model.HistoryRecord
		err     error
		rep     Report
	)
	if src.Teams != nil {
		if teams, err = ReadTeams(src.Teams); err != nil {
			return rep, fmt.Errorf("read teams: %w", err)
		}
	}
	if src.History != nil {
		if history, err = ReadHistory(src.History); err != nil {
			return rep, fmt.Errorf("read history: %w", err)
		}
	}

	if len(teams) > 0 {
		if rep.Teams, err = i.target.PushTeams(ctx, teams); err != nil {
			return rep, fmt.Errorf("push teams: %w", err)
		}
		i.log.Info(ctx, "teams imported", logger.Int("teams", rep.Teams))
	}
	if len(history) > 0 {
		if rep.HistoryAdded, rep.HistoryDuplicates, err = i.target.PushHistory(ctx, history); err != nil {
			return rep, fmt.Errorf("push history: %w", err)
		}
		i.log.Info(ctx, "history imported",
			logger.Int("added", rep.HistoryAdded),
			logger.Int("duplicates", rep.HistoryDuplicates),
		)
	}
	if src.Warm {
		if rep.Generation, err = i.target.WarmRanks(ctx); err != nil {
			return rep, fmt.Errorf("warm ranks: %w", err)
		}
		i.log.Info(ctx, "rank cache warmed", logger.Any("generation", rep.Generation))
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// ServiceTarget writes through an in-process service and its store.
type ServiceTarget struct {
	Service *service.Service
}

var _ Target = ServiceTarget{}

// PushTeams refreshes the team field.
func (t ServiceTarget) PushTeams(ctx context.Context, teams []model.Team) (int, error) {
	res, err := t.Service.RefreshTeams(ctx, teams)
	return res.Upserted, err
}

// PushHistory appends history idempotently.
func (t ServiceTarget) PushHistory(ctx context.Context, records []model.HistoryRecord) (int, int, error) {
	res, err := t.Service.AppendHistory(ctx, records)
	return res.Added, res.Duplicates, err
}

// WarmRanks rebuilds synchronously.
func (t ServiceTarget) WarmRanks(ctx context.Context) (uint64, error) {
	snap, err := t.Service.RebuildRanks(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Generation, nil
}
