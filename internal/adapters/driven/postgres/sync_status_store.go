package postgres

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncStatusStore = (*SyncStatusStore)(nil)

// SyncStatusStore implements the append-only sync ledger using PostgreSQL.
// The table carries a trigger that rejects UPDATE and DELETE.
type SyncStatusStore struct {
	db *DB
}

// NewSyncStatusStore creates a new SyncStatusStore
func NewSyncStatusStore(db *DB) *SyncStatusStore {
	return &SyncStatusStore{db: db}
}

// Append records a new ledger entry and fills in its ID and Timestamp
func (s *SyncStatusStore) Append(ctx context.Context, e *domain.SyncStatusEntry) error {
	query := `
		INSERT INTO sync_status (run_id, entity_kind, state, timestamp, total_synced, error)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()), $5, $6)
		RETURNING id, timestamp
	`

	return s.db.QueryRowContext(ctx, query,
		e.RunID,
		string(e.Kind),
		string(e.State),
		nullTime(e.Timestamp),
		e.TotalSynced,
		e.Error,
	).Scan(&e.ID, &e.Timestamp)
}

// Latest returns the newest entry for a kind
func (s *SyncStatusStore) Latest(ctx context.Context, kind domain.EntityKind) (*domain.SyncStatusEntry, error) {
	query := `
		SELECT id, run_id, entity_kind, state, timestamp, total_synced, error
		FROM sync_status
		WHERE entity_kind = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// LatestAll returns the newest entry of every kind, in run order
func (s *SyncStatusStore) LatestAll(ctx context.Context) ([]*domain.SyncStatusEntry, error) {
	query := `
		SELECT DISTINCT ON (entity_kind) id, run_id, entity_kind, state, timestamp, total_synced, error
		FROM sync_status
		ORDER BY entity_kind, timestamp DESC, id DESC
	`

	entries, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b *domain.SyncStatusEntry) int {
		return kindRank(a.Kind) - kindRank(b.Kind)
	})
	return entries, nil
}

// History returns up to limit entries for a kind, newest first
func (s *SyncStatusStore) History(ctx context.Context, kind domain.EntityKind, limit int) ([]*domain.SyncStatusEntry, error) {
	query := `
		SELECT id, run_id, entity_kind, state, timestamp, total_synced, error
		FROM sync_status
		WHERE entity_kind = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	return s.query(ctx, query, string(kind), limit)
}

func (s *SyncStatusStore) query(ctx context.Context, query string, args ...any) ([]*domain.SyncStatusEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*domain.SyncStatusEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (*domain.SyncStatusEntry, error) {
	var e domain.SyncStatusEntry
	var kind, state string
	if err := row.Scan(&e.ID, &e.RunID, &kind, &state, &e.Timestamp, &e.TotalSynced, &e.Error); err != nil {
		return nil, err
	}
	e.Kind = domain.EntityKind(kind)
	e.State = domain.SyncState(state)
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}

// kindRank orders kinds the way a full run visits them; unknown kinds sort last
func kindRank(kind domain.EntityKind) int {
	if i := slices.Index(domain.RunOrder, kind); i >= 0 {
		return i
	}
	return len(domain.RunOrder)
}
