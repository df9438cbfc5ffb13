// Package reconciler drains the outbox against the remote store and watches
// for drift between the two sides. It is the only component that performs
// remote writes; everything else schedules or observes it.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/client/remote"
	"github.com/avolkov/leadbook/internal/client/repositories/records"
	"github.com/avolkov/leadbook/internal/client/session"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/logging"
)

// DefaultDriftTolerance is the allowed absolute difference between local and
// remote record counts before an empty-queue divergence is reported as
// drift. Small windows of divergence are ordinary during reconciliation.
const DefaultDriftTolerance = 2

// SessionSource yields the current authenticated session.
type SessionSource interface {
	Current(ctx context.Context) (*session.Session, error)
}

// SyncedWriter writes back remote-confirmed record state. Implemented by the
// store's PutSynced path.
type SyncedWriter interface {
	PutSynced(ctx context.Context, record *models.Record, remoteTS time.Time) (bool, error)
}

type Reconciler struct {
	repo      records.Repository
	writer    SyncedWriter
	remote    remote.Remote
	sessions  SessionSource
	log       logging.Logger
	tolerance int
	now       func() time.Time

	// wake re-arms the scheduler after operations that dirty records
	// without going through the store's change notifications.
	wake func()
}

func New(repo records.Repository, writer SyncedWriter, rmt remote.Remote, sessions SessionSource, log logging.Logger) *Reconciler {
	return &Reconciler{
		repo:      repo,
		writer:    writer,
		remote:    rmt,
		sessions:  sessions,
		log:       log,
		tolerance: DefaultDriftTolerance,
		now:       time.Now,
	}
}

// SetWake registers the scheduler hook invoked after ResyncAll.
func (r *Reconciler) SetWake(fn func()) {
	r.wake = fn
}

// SetTolerance overrides the drift tolerance used by HealthCheck.
func (r *Reconciler) SetTolerance(n int) {
	if n >= 0 {
		r.tolerance = n
	}
}

// authenticate resolves the cached session and binds its token to the remote
// connection. Any session problem surfaces as ErrAuthRequired: the caller
// must re-authenticate, retrying is pointless.
func (r *Reconciler) authenticate(ctx context.Context) error {
	sess, err := r.sessions.Current(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuthRequired, err)
	}
	return r.remote.Authenticate(ctx, sess.Token)
}

// Flush pushes every pending record once, oldest queued first. A failing
// record is counted and skipped, it never blocks the records behind it; the
// first error is kept for reporting. An authentication failure aborts the
// pass because every remaining item would fail the same way.
func (r *Reconciler) Flush(ctx context.Context, ownerId string) models.FlushResult {
	if err := r.authenticate(ctx); err != nil {
		return models.FlushResult{Err: err}
	}

	dirty, err := r.repo.GetDirty(ctx, ownerId)
	if err != nil {
		return models.FlushResult{Err: fmt.Errorf("%w: %w", common.ErrStorageFailure, err)}
	}

	var result models.FlushResult
	for i, rec := range dirty {
		itemErr := r.pushOne(ctx, &rec)
		if itemErr == nil {
			result.Pushed++
			continue
		}

		result.Failed++
		if result.Err == nil {
			result.Err = itemErr
		}
		r.log.Warn(ctx, "push failed", "id", rec.Id, "error", itemErr)

		if errors.Is(itemErr, common.ErrAuthRequired) {
			result.Failed += len(dirty) - i - 1
			break
		}
	}

	r.log.Info(ctx, "flush finished",
		"owner_id", ownerId, "pushed", result.Pushed, "failed", result.Failed)
	return result
}

// pushOne reconciles a single record: tombstones delete remotely and purge
// locally, everything else upserts and clears its dirty flag. The clear is
// compare-and-swap on the modification stamp captured before the network
// call, so an edit racing the push keeps the record queued.
func (r *Reconciler) pushOne(ctx context.Context, rec *models.Record) error {
	expected := rec.LastModifiedLocal

	if rec.Deleted {
		if err := r.remote.Delete(ctx, rec.Id); err != nil {
			return err
		}
		if err := r.repo.Purge(ctx, rec.Id); err != nil {
			return fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
		}
		return nil
	}

	remoteTS, err := r.remote.Upsert(ctx, rec)
	if err != nil {
		return err
	}

	cleared, err := r.repo.MarkSynced(ctx, rec.Id, remoteTS, expected)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	if !cleared {
		// edited again mid-push; stays queued for the next pass
		r.log.Debug(ctx, "record re-dirtied during push", "id", rec.Id)
	}
	return nil
}

// HealthCheck compares local and remote record counts for an owner. A
// divergence with a non-empty queue is ordinary lag; with an empty queue and
// a difference beyond the tolerance it is reported as drift.
func (r *Reconciler) HealthCheck(ctx context.Context, ownerId string) (models.Health, error) {
	var h models.Health

	local, err := r.repo.CountByOwner(ctx, ownerId)
	if err != nil {
		return h, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	h.Local = local

	dirty, err := r.repo.GetDirty(ctx, ownerId)
	if err != nil {
		return h, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	h.PendingQueue = len(dirty)

	if err := r.authenticate(ctx); err != nil {
		return h, err
	}
	remoteCount, err := r.remote.CountByOwner(ctx, ownerId)
	if err != nil {
		return h, err
	}
	h.Remote = remoteCount

	diff := h.Local - h.Remote
	if diff < 0 {
		diff = -diff
	}
	h.DriftDetected = h.PendingQueue == 0 && diff > r.tolerance

	if h.DriftDetected {
		r.log.Warn(ctx, "drift detected",
			"owner_id", ownerId, "local", h.Local, "remote", h.Remote)
	}
	return h, nil
}

// ResyncAll force-marks every record of the owner dirty so the next flush
// pushes the complete local state. Safe to repeat: remote upserts are
// keyed by record id, so a second pass converges to the same remote state.
func (r *Reconciler) ResyncAll(ctx context.Context, ownerId string) (int64, error) {
	n, err := r.repo.ForceAllDirty(ctx, ownerId, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	r.log.Info(ctx, "full resync queued", "owner_id", ownerId, "records", n)

	if n > 0 && r.wake != nil {
		r.wake()
	}
	return n, nil
}

// Pull downloads the owner's remote records and writes back the ones that
// carry no unpushed local changes. Returns how many records were applied.
func (r *Reconciler) Pull(ctx context.Context, ownerId string) (int, error) {
	if err := r.authenticate(ctx); err != nil {
		return 0, err
	}

	remoteRecords, err := r.remote.FetchByOwner(ctx, ownerId)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range remoteRecords {
		rec := remoteRecords[i]
		ok, err := r.writer.PutSynced(ctx, &rec, *rec.LastSyncedRemote)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}

	r.log.Info(ctx, "pull finished",
		"owner_id", ownerId, "fetched", len(remoteRecords), "applied", applied)
	return applied, nil
}
