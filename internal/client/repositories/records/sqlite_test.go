package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  id                  TEXT PRIMARY KEY,
  owner_id            TEXT NOT NULL,
  display_name        TEXT NOT NULL DEFAULT '',
  payload             BLOB NOT NULL,
  deleted             INTEGER NOT NULL DEFAULT 0,
  last_modified_local INTEGER NOT NULL,
  last_synced_remote  INTEGER,
  queued_at           INTEGER
);`)
	require.NoError(t, err)

	return db
}

func mkRecord(id, owner string, modified time.Time) *models.Record {
	return &models.Record{
		Id:                id,
		OwnerId:           owner,
		DisplayName:       "lead " + id,
		Payload:           []byte(`{"v":1}`),
		LastModifiedLocal: modified,
		QueuedAt:          modified,
	}
}

func TestUpsert_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, r.Upsert(ctx, mkRecord("id1", "owner1", now)))

	got, err := r.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, "owner1", got.OwnerId)
	assert.Equal(t, now, got.LastModifiedLocal)
	assert.Nil(t, got.LastSyncedRemote)
	assert.False(t, got.Synced())

	// update by the same id
	rec2 := mkRecord("id1", "owner1", now.Add(time.Second))
	rec2.Payload = []byte(`{"v":2}`)
	require.NoError(t, r.Upsert(ctx, rec2))

	got, err = r.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), []byte(got.Payload))
	assert.Equal(t, now.Add(time.Second), got.LastModifiedLocal)
}

func TestGet_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByOwner_SkipsTombstonesAndForeignOwners(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Upsert(ctx, mkRecord("a", "owner1", now)))
	require.NoError(t, r.Upsert(ctx, mkRecord("b", "owner2", now)))
	tomb := mkRecord("c", "owner1", now)
	tomb.Deleted = true
	require.NoError(t, r.Upsert(ctx, tomb))

	got, err := r.ListByOwner(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Id)
}

func TestGetDirty_OrderAndTombstones(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	// queued out of insertion order
	old := mkRecord("old", "owner1", base.Add(2*time.Second))
	old.QueuedAt = base
	require.NoError(t, r.Upsert(ctx, old))

	newer := mkRecord("newer", "owner1", base.Add(time.Second))
	newer.QueuedAt = base.Add(time.Second)
	require.NoError(t, r.Upsert(ctx, newer))

	tomb := mkRecord("gone", "owner1", base.Add(3*time.Second))
	tomb.QueuedAt = base.Add(2 * time.Second)
	tomb.Deleted = true
	require.NoError(t, r.Upsert(ctx, tomb))

	// a clean record must not show up
	ts := base.Add(time.Second)
	clean := mkRecord("clean", "owner1", base)
	clean.LastSyncedRemote = &ts
	clean.QueuedAt = time.Time{}
	require.NoError(t, r.Upsert(ctx, clean))

	got, err := r.GetDirty(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "old", got[0].Id)
	assert.Equal(t, "newer", got[1].Id)
	assert.Equal(t, "gone", got[2].Id)
	assert.True(t, got[2].Deleted)
}

func TestMarkSynced_ClearsOnlyExactVersion(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, r.Upsert(ctx, mkRecord("id1", "owner1", base)))

	// push succeeds for the captured version
	ok, err := r.MarkSynced(ctx, "id1", base.Add(time.Second), base)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.Get(ctx, "id1")
	require.NoError(t, err)
	assert.True(t, got.Synced())
	assert.True(t, got.QueuedAt.IsZero())

	// edit again, then try to clear with the stale pre-edit version
	edited := mkRecord("id1", "owner1", base.Add(2*time.Second))
	require.NoError(t, r.Upsert(ctx, edited))

	ok, err = r.MarkSynced(ctx, "id1", base.Add(3*time.Second), base)
	require.NoError(t, err)
	assert.False(t, ok, "stale mark must not clear a newer local write")

	got, err = r.Get(ctx, "id1")
	require.NoError(t, err)
	assert.False(t, got.Synced())
}

func TestCountByOwner(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Upsert(ctx, mkRecord("a", "owner1", now)))
	require.NoError(t, r.Upsert(ctx, mkRecord("b", "owner1", now)))
	tomb := mkRecord("c", "owner1", now)
	tomb.Deleted = true
	require.NoError(t, r.Upsert(ctx, tomb))

	n, err := r.CountByOwner(ctx, "owner1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPurge_RemovesRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, mkRecord("x", "owner1", time.Now().UTC())))
	require.NoError(t, r.Purge(ctx, "x"))

	_, err := r.Get(ctx, "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestForceAllDirty_PreservesExistingQueueTimes(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	// one clean record, one already dirty
	ts := base
	clean := mkRecord("clean", "owner1", base)
	clean.LastSyncedRemote = &ts
	clean.QueuedAt = time.Time{}
	require.NoError(t, r.Upsert(ctx, clean))

	dirty := mkRecord("dirty", "owner1", base)
	dirty.QueuedAt = base.Add(-time.Hour)
	require.NoError(t, r.Upsert(ctx, dirty))

	now := base.Add(time.Minute)
	affected, err := r.ForceAllDirty(ctx, "owner1", now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	got, err := r.GetDirty(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// the long-queued record keeps its place at the head of the queue
	assert.Equal(t, "dirty", got[0].Id)
	assert.Equal(t, base.Add(-time.Hour), got[0].QueuedAt)
	assert.Equal(t, now, got[1].QueuedAt)

	// idempotent: forcing twice does not duplicate or reorder
	_, err = r.ForceAllDirty(ctx, "owner1", now.Add(time.Second))
	require.NoError(t, err)
	again, err := r.GetDirty(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "dirty", again[0].Id)
}
