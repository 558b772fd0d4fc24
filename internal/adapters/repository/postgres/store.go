package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/okian/calcutta/internal/adapters/repository"
	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/metrics"
)

// Store implements repository.Store on top of a Client.
type Store struct {
	client *Client
}

var _ repository.Store = (*Store)(nil)

// NewStore returns a store backed by the client's pool.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

const teamColumns = `id, name, conference, seed, region, package, stats, odds,
	live, owned, sold, eliminated, price`

func scanTeam(row pgx.Row) (model.Team, error) {
	var (
		t                   model.Team
		pkg                 string
		statsJSON, oddsJSON []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Conference, &t.Seed, &t.Region, &pkg,
		&statsJSON, &oddsJSON, &t.Live, &t.Owned, &t.Sold, &t.Eliminated, &t.Price); err != nil {
		return model.Team{}, err
	}
	t.Package = model.Package(pkg)
	if err := decodeMaps(statsJSON, oddsJSON, &t); err != nil {
		return model.Team{}, fmt.Errorf("postgres: decode team %s: %w", t.ID, err)
	}
	return t, nil
}

func decodeMaps(statsJSON, oddsJSON []byte, t *model.Team) error {
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &t.Stats); err != nil {
			return err
		}
		if len(t.Stats) == 0 {
			t.Stats = nil
		}
	}
	if len(oddsJSON) > 0 {
		if err := json.Unmarshal(oddsJSON, &t.Odds); err != nil {
			return err
		}
		if len(t.Odds) == 0 {
			t.Odds = nil
		}
	}
	return nil
}

func encodeMaps(t model.Team) (statsJSON, oddsJSON []byte, err error) {
	stats := t.Stats
	if stats == nil {
		stats = map[string]float64{}
	}
	odds := t.Odds
	if odds == nil {
		odds = map[model.Round]float64{}
	}
	if statsJSON, err = json.Marshal(stats); err != nil {
		return nil, nil, err
	}
	if oddsJSON, err = json.Marshal(odds); err != nil {
		return nil, nil, err
	}
	return statsJSON, oddsJSON, nil
}

// ListTeams returns every team ordered by id.
func (s *Store) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := s.client.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetTeam returns repository.ErrNotFound for unknown ids.
func (s *Store) GetTeam(ctx context.Context, id string) (model.Team, error) {
	t, err := scanTeam(s.client.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("postgres: get team %s: %w", id, err)
	}
	return t, nil
}

// UpsertTeams replaces whole records in one batch.
func (s *Store) UpsertTeams(ctx context.Context, teams []model.Team) error {
	if len(teams) == 0 {
		return nil
	}
	const query = `
		INSERT INTO teams (` + teamColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, conference = EXCLUDED.conference,
			seed = EXCLUDED.seed, region = EXCLUDED.region, package = EXCLUDED.package,
			stats = EXCLUDED.stats, odds = EXCLUDED.odds,
			live = EXCLUDED.live, owned = EXCLUDED.owned, sold = EXCLUDED.sold,
			eliminated = EXCLUDED.eliminated, price = EXCLUDED.price,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, t := range teams {
		statsJSON, oddsJSON, err := encodeMaps(t)
		if err != nil {
			return fmt.Errorf("postgres: encode team %s: %w", t.ID, err)
		}
		batch.Queue(query, t.ID, t.Name, t.Conference, t.Seed, t.Region, string(t.Package),
			statsJSON, oddsJSON, t.Live, t.Owned, t.Sold, t.Eliminated, t.Price)
	}

	br := s.client.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, t := range teams {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert team %s: %w", t.ID, err)
		}
	}
	return s.refreshTeamGauge(ctx)
}

func (s *Store) refreshTeamGauge(ctx context.Context) error {
	var n int
	if err := s.client.pool.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&n); err != nil {
		return fmt.Errorf("postgres: count teams: %w", err)
	}
	metrics.UpdateTeams(n)
	return nil
}

// ApplyAuction locks the affected rows, validates every resulting record and
// writes them in a single transaction.
func (s *Store) ApplyAuction(ctx context.Context, changes []model.AuctionChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.client.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range changes {
		t, err := scanTeam(tx.QueryRow(ctx,
			`SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, c.TeamID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", repository.ErrUnknownTeam, c.TeamID)
		}
		if err != nil {
			return fmt.Errorf("postgres: lock team %s: %w", c.TeamID, err)
		}
		updated := c.Apply(t)
		if err := updated.Validate(); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE teams SET live = $2, owned = $3, sold = $4, price = $5, updated_at = NOW()
			WHERE id = $1`,
			updated.ID, updated.Live, updated.Owned, updated.Sold, updated.Price,
		); err != nil {
			return fmt.Errorf("postgres: update team %s: %w", c.TeamID, err)
		}
	}
	return tx.Commit(ctx)
}

// ListHistory returns the archive ordered by year then insertion.
func (s *Store) ListHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	rows, err := s.client.pool.Query(ctx, `SELECT name, seed, price, year FROM history ORDER BY year, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history: %w", err)
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		var r model.HistoryRecord
		if err := rows.Scan(&r.Name, &r.Seed, &r.Price, &r.Year); err != nil {
			return nil, fmt.Errorf("postgres: scan history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// AppendHistory inserts records and skips any (team_key, year) already stored.
func (s *Store) AppendHistory(ctx context.Context, records []model.HistoryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	const query = `
		INSERT INTO history (team_key, name, seed, price, year)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_key, year) DO NOTHING`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, model.Slug(r.Name), r.Name, r.Seed, r.Price, r.Year)
	}

	br := s.client.pool.SendBatch(ctx, batch)
	defer br.Close()

	added := 0
	for _, r := range records {
		tag, err := br.Exec()
		if err != nil {
			return added, fmt.Errorf("postgres: insert history %s: %w", r.Key(), err)
		}
		added += int(tag.RowsAffected())
	}
	metrics.RecordHistoryAppend(added, len(records)-added)
	return added, nil
}

// ReplaceRanks swaps the whole rank table in one transaction.
func (s *Store) ReplaceRanks(ctx context.Context, entries []model.RankEntry) error {
	tx, err := s.client.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ranks`); err != nil {
		return fmt.Errorf("postgres: clear ranks: %w", err)
	}
	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{e.TeamID, e.Field, e.Rank}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ranks"}, []string{"team_id", "field", "rank"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("postgres: copy ranks: %w", err)
	}
	return tx.Commit(ctx)
}

// LoadRanks returns the persisted rank table.
func (s *Store) LoadRanks(ctx context.Context) ([]model.RankEntry, error) {
	rows, err := s.client.pool.Query(ctx, `SELECT team_id, field, rank FROM ranks ORDER BY team_id, field`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load ranks: %w", err)
	}
	defer rows.Close()

	var entries []model.RankEntry
	for rows.Next() {
		var e model.RankEntry
		if err := rows.Scan(&e.TeamID, &e.Field, &e.Rank); err != nil {
			return nil, fmt.Errorf("postgres: scan rank: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}
