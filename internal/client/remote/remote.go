// Package remote talks to the authoritative cloud store. Records are kept in
// a SurrealDB table scoped by owner; every operation here maps driver and
// transport failures onto the shared error taxonomy so callers can tell
// "re-authenticate" apart from "try again later".
package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
)

// Remote is the reconciler's view of the cloud store.
type Remote interface {
	// Authenticate attaches a session token to the connection. Must be
	// called before any data operation.
	Authenticate(ctx context.Context, token string) error

	// Upsert writes a record and returns the modification stamp the remote
	// store confirmed.
	Upsert(ctx context.Context, record *models.Record) (time.Time, error)

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, id string) error

	// Get fetches one record, common.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.Record, error)

	// CountByOwner counts the owner's live records on the remote side.
	CountByOwner(ctx context.Context, ownerId string) (int, error)

	// FetchByOwner returns all of the owner's live records.
	FetchByOwner(ctx context.Context, ownerId string) ([]models.Record, error)

	// Ping verifies the connection is alive without touching data.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close()
}

// wireRecord is the JSON shape stored in the remote table. Timestamps travel
// as integer unix microseconds so that compare-and-swap checks against the
// local store are exact.
type wireRecord struct {
	RecordId    string          `json:"record_id"`
	OwnerId     string          `json:"owner_id"`
	DisplayName string          `json:"display_name"`
	Payload     json.RawMessage `json:"payload"`
	ModifiedAt  int64           `json:"modified_at"`
}

func toWire(r *models.Record) *wireRecord {
	return &wireRecord{
		RecordId:    r.Id,
		OwnerId:     r.OwnerId,
		DisplayName: r.DisplayName,
		Payload:     r.Payload,
		ModifiedAt:  r.LastModifiedLocal.UnixMicro(),
	}
}

func fromWire(w *wireRecord) models.Record {
	ts := time.UnixMicro(w.ModifiedAt).UTC()
	return models.Record{
		Id:                w.RecordId,
		OwnerId:           w.OwnerId,
		DisplayName:       w.DisplayName,
		Payload:           w.Payload,
		LastModifiedLocal: ts,
		LastSyncedRemote:  &ts,
	}
}
