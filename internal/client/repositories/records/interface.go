package records

import (
	"context"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
)

// Repository describes persistence operations for Record rows in the local
// durable store. Implementations are backed by SQLite.
type Repository interface {
	// Get returns a record by id, tombstones included.
	// Returns common.ErrNotFound when no row exists.
	Get(ctx context.Context, id string) (*models.Record, error)

	// ListByOwner returns all live (non-tombstone) records of an owner.
	ListByOwner(ctx context.Context, ownerId string) ([]models.Record, error)

	// Upsert writes the row exactly as given. Stamping of modification and
	// queue times is the store's responsibility, not the repository's.
	Upsert(ctx context.Context, record *models.Record) error

	// GetDirty returns records with local changes not yet confirmed remote,
	// tombstones included, ordered oldest-queued first.
	GetDirty(ctx context.Context, ownerId string) ([]models.Record, error)

	// CountByOwner counts live records of an owner.
	CountByOwner(ctx context.Context, ownerId string) (int, error)

	// MarkSynced clears dirtiness for the exact version that was pushed:
	// the update applies only while last_modified_local still equals
	// expectedModified. Returns false when a newer local write won the race,
	// in which case the record stays dirty.
	MarkSynced(ctx context.Context, id string, remoteTS, expectedModified time.Time) (bool, error)

	// Purge removes a row entirely. Used after a tombstone's deletion is
	// confirmed by the remote store.
	Purge(ctx context.Context, id string) error

	// ForceAllDirty marks every record of an owner dirty, bumping
	// last_modified_local to now and assigning queued_at only where it is
	// not already set. Returns the number of affected rows.
	ForceAllDirty(ctx context.Context, ownerId string, now time.Time) (int64, error)
}
