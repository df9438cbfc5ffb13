// Package metadata is a small key/value store in the local database, used
// for cached session state and other per-installation bookkeeping.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear wipes every key. Used on session reset.
	Clear(ctx context.Context) error
}
