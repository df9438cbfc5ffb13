// Package store implements the durable record store service: the single
// write path for local records. Every local mutation stamps modification
// time, marks the record dirty, and fans out a change notification to
// subscribers (the rendering layer and the sync scheduler).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/client/repositories/records"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/dbx"
	"github.com/avolkov/leadbook/internal/logging"
	"github.com/google/uuid"
)

// Store owns the local records table. It is the sole writer to that table
// apart from the reconciler's confirmed-write path, which also goes through
// here (PutSynced) so both serialize on the same connection.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu      sync.Mutex
	subs    map[int]func(ownerId string)
	nextSub int

	now func() time.Time
}

func New(db *sql.DB, log logging.Logger) *Store {
	return &Store{
		db:   db,
		log:  log,
		subs: make(map[int]func(ownerId string)),
		now:  time.Now,
	}
}

func (s *Store) repo(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db)
}

// Subscribe registers a callback invoked after every local mutation with the
// owner id of the affected record. Remote-confirmed write-backs (PutSynced)
// do not fire it: they leave the outbox untouched, so there is nothing for
// the scheduler to pick up. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(ownerId string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(ownerId string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// callbacks run outside the lock so a subscriber may re-enter the store
	for _, fn := range fns {
		fn(ownerId)
	}
}

func (s *Store) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.repo(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, ownerId string) ([]models.Record, error) {
	return s.repo(s.db).ListByOwner(ctx, ownerId)
}

// Put upserts a record: assigns an id when absent, stamps the modification
// time, and marks the record dirty. A storage failure is fatal to the call
// and is propagated; it is never swallowed.
func (s *Store) Put(ctx context.Context, record *models.Record) error {
	if record.OwnerId == "" {
		return fmt.Errorf("record owner must be set")
	}
	if record.Id == "" {
		record.Id = uuid.NewString()
	}

	now := s.now().UTC()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)

		record.LastModifiedLocal = now
		record.LastSyncedRemote = nil
		record.Deleted = false
		record.QueuedAt = now

		// a record that is already waiting keeps its place in the queue
		existing, err := repo.Get(ctx, record.Id)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if existing != nil && !existing.Synced() && !existing.QueuedAt.IsZero() {
			record.QueuedAt = existing.QueuedAt
		}
		if existing != nil && existing.LastSyncedRemote != nil {
			record.LastSyncedRemote = existing.LastSyncedRemote
		}

		return repo.Upsert(ctx, record)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	s.notify(record.OwnerId)
	return nil
}

// Delete queues removal of a record. The record becomes a tombstone that
// flows through the outbox like any other mutation; the row is purged only
// after the remote store confirms the deletion.
func (s *Store) Delete(ctx context.Context, id string) error {
	var ownerId string
	now := s.now().UTC()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)

		rec, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		ownerId = rec.OwnerId

		rec.Deleted = true
		rec.LastModifiedLocal = now
		if rec.QueuedAt.IsZero() || rec.Synced() {
			rec.QueuedAt = now
		}
		rec.LastSyncedRemote = nil

		return repo.Upsert(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	s.notify(ownerId)
	return nil
}

// PutSynced writes back a remote-confirmed record state. It is used only by
// the reconciler (pull path) and refuses to clobber a record with local
// changes still awaiting push. Returns true when the write was applied.
func (s *Store) PutSynced(ctx context.Context, record *models.Record, remoteTS time.Time) (bool, error) {
	applied := false

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)

		existing, err := repo.Get(ctx, record.Id)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if existing != nil && !existing.Synced() {
			// local edit wins until it has been pushed
			s.log.Debug(ctx, "write-back skipped, record has unpushed changes", "id", record.Id)
			return nil
		}

		ts := remoteTS.UTC()
		record.LastModifiedLocal = ts
		record.LastSyncedRemote = &ts
		record.QueuedAt = time.Time{}
		record.Deleted = false

		if err := repo.Upsert(ctx, record); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	// no notify: a confirmed write-back is not a local mutation and must
	// not arm the sync scheduler
	return applied, nil
}

// ExportSnapshot returns all live records of an owner for backup download.
func (s *Store) ExportSnapshot(ctx context.Context, ownerId string) ([]models.Record, error) {
	return s.repo(s.db).ListByOwner(ctx, ownerId)
}

// DB exposes the underlying handle for collaborators that share the same
// storage medium (outbox, reconciler). Reads only.
func (s *Store) DB() *sql.DB {
	return s.db
}
