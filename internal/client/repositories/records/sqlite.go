package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/dbx"
)

// Timestamps are stored as integer unix microseconds so the compare-and-set
// in MarkSynced is exact. SQLite datetime strings would lose sub-second
// precision depending on formatting.

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// dirtyCond selects rows whose local state is not confirmed remote. This is
// the single definition of "dirty"; the outbox and drift checks both derive
// from it rather than keeping their own flags.
const dirtyCond = `(last_synced_remote IS NULL OR last_synced_remote < last_modified_local)`

func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var (
		r        models.Record
		modified int64
		synced   sql.NullInt64
		queued   sql.NullInt64
		deleted  int
	)
	err := scan(&r.Id, &r.OwnerId, &r.DisplayName, &r.Payload, &deleted, &modified, &synced, &queued)
	if err != nil {
		return nil, err
	}
	r.Deleted = deleted != 0
	r.LastModifiedLocal = fromMicros(modified)
	if synced.Valid {
		ts := fromMicros(synced.Int64)
		r.LastSyncedRemote = &ts
	}
	if queued.Valid {
		r.QueuedAt = fromMicros(queued.Int64)
	}
	return &r, nil
}

const recordCols = `id, owner_id, display_name, payload, deleted, last_modified_local, last_synced_remote, queued_at`

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordCols+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerId string) ([]models.Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordCols+` FROM records WHERE owner_id = ? AND deleted = 0 ORDER BY display_name, id`,
		ownerId)
}

func (r *SQLiteRepository) GetDirty(ctx context.Context, ownerId string) ([]models.Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordCols+` FROM records
		 WHERE owner_id = ? AND `+dirtyCond+`
		 ORDER BY COALESCE(queued_at, last_modified_local), id`,
		ownerId)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, record *models.Record) error {
	var synced any
	if record.LastSyncedRemote != nil {
		synced = toMicros(*record.LastSyncedRemote)
	}
	var queued any
	if !record.QueuedAt.IsZero() {
		queued = toMicros(record.QueuedAt)
	}

	query := `INSERT INTO records (id, owner_id, display_name, payload, deleted, last_modified_local, last_synced_remote, queued_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner_id = excluded.owner_id,
				display_name = excluded.display_name,
				payload = excluded.payload,
				deleted = excluded.deleted,
				last_modified_local = excluded.last_modified_local,
				last_synced_remote = excluded.last_synced_remote,
				queued_at = excluded.queued_at
	`
	_, err := r.db.ExecContext(ctx, query,
		record.Id, record.OwnerId, record.DisplayName, record.Payload,
		record.Deleted, toMicros(record.LastModifiedLocal), synced, queued)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountByOwner(ctx context.Context, ownerId string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE owner_id = ? AND deleted = 0`, ownerId).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, remoteTS, expectedModified time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE records SET last_synced_remote = ?, queued_at = NULL
		 WHERE id = ? AND last_modified_local = ?`,
		toMicros(remoteTS), id, toMicros(expectedModified))
	if err != nil {
		return false, fmt.Errorf("failed to mark record synced: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to purge record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ForceAllDirty(ctx context.Context, ownerId string, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE records SET
			last_modified_local = ?,
			queued_at = COALESCE(queued_at, ?)
		 WHERE owner_id = ?`,
		toMicros(now), toMicros(now), ownerId)
	if err != nil {
		return 0, fmt.Errorf("failed to force records dirty: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
