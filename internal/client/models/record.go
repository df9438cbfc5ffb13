// Package models defines the client-side data model for leadbook: locally
// persisted lead/customer records and the projections derived from them.
package models

import (
	"encoding/json"
	"time"
)

// Record is a versioned, opaque blob of application data (a client or lead)
// persisted locally and reconciled with the authoritative remote store.
// The payload schema belongs to the calling feature code; the sync core never
// looks inside it.
type Record struct {
	// Id is a globally unique, client-generated identifier.
	Id string

	// OwnerId is the account that created and owns the record. All remote
	// operations are scoped by it.
	OwnerId string

	// DisplayName is a short human label used in lists and outbox badges.
	DisplayName string

	// Payload is the opaque structured data.
	Payload json.RawMessage

	// Deleted marks the record as a tombstone awaiting remote deletion.
	Deleted bool

	// LastModifiedLocal is set on every local write, in UTC.
	LastModifiedLocal time.Time

	// LastSyncedRemote is set on a confirmed remote write, nil before the
	// first successful push.
	LastSyncedRemote *time.Time

	// QueuedAt is the moment the record first became dirty, zero when clean.
	// It gives the outbox its FIFO order and survives re-edits of an
	// already-dirty record.
	QueuedAt time.Time
}

// Synced reports whether the record's local state is confirmed written to
// the remote store: a non-nil LastSyncedRemote that is not older than the
// last local modification.
func (r *Record) Synced() bool {
	return r.LastSyncedRemote != nil && !r.LastSyncedRemote.Before(r.LastModifiedLocal)
}

// OutboxEntry is a lightweight projection of a dirty record awaiting push.
// At most one entry exists per record id; the outbox is always derived from
// record dirty flags, never persisted on its own.
type OutboxEntry struct {
	Id          string
	DisplayName string
	QueuedAt    time.Time
}
