package driven

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// SyncStatusStore is the append-only sync ledger (PostgreSQL).
// There is no update or delete; the current status of a kind is its newest entry.
type SyncStatusStore interface {
	// Append records a new entry and fills in its ID and Timestamp when unset
	Append(ctx context.Context, entry *domain.SyncStatusEntry) error

	// Latest returns the newest entry for a kind, or domain.ErrNotFound
	Latest(ctx context.Context, kind domain.EntityKind) (*domain.SyncStatusEntry, error)

	// LatestAll returns the newest entry of every kind that has one
	LatestAll(ctx context.Context) ([]*domain.SyncStatusEntry, error)

	// History returns up to limit entries for a kind, newest first
	History(ctx context.Context, kind domain.EntityKind, limit int) ([]*domain.SyncStatusEntry, error)
}
