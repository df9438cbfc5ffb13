// Package outbox derives the queue of records awaiting push from the record
// store's dirty flags. The queue is never persisted on its own: it is always
// recomputable from the records table, which removes the possibility of the
// queue and the store disagreeing after a crash.
package outbox

import (
	"context"
	"database/sql"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/client/repositories/records"
)

type Outbox struct {
	repo records.Repository
}

func New(db *sql.DB) *Outbox {
	return &Outbox{repo: records.NewSQLiteRepository(db)}
}

// NewWithRepository is a constructor seam for tests.
func NewWithRepository(repo records.Repository) *Outbox {
	return &Outbox{repo: repo}
}

// Snapshot returns the pending entries for an owner, oldest queued first.
// One entry per record id: re-queuing a record replaces its entry by
// construction, because entries are projected from record rows.
func (o *Outbox) Snapshot(ctx context.Context, ownerId string) ([]models.OutboxEntry, error) {
	dirty, err := o.repo.GetDirty(ctx, ownerId)
	if err != nil {
		return nil, err
	}

	entries := make([]models.OutboxEntry, 0, len(dirty))
	for _, rec := range dirty {
		queuedAt := rec.QueuedAt
		if queuedAt.IsZero() {
			queuedAt = rec.LastModifiedLocal
		}
		entries = append(entries, models.OutboxEntry{
			Id:          rec.Id,
			DisplayName: rec.DisplayName,
			QueuedAt:    queuedAt,
		})
	}
	return entries, nil
}

// Size reports how many records are pending. Used for UI badges and
// threshold checks only.
func (o *Outbox) Size(ctx context.Context, ownerId string) (int, error) {
	entries, err := o.Snapshot(ctx, ownerId)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
