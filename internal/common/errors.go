// Package common defines shared constants and sentinel errors used across
// leadbook components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrStorageFailure means the local durable medium rejected a write.
	// It is always propagated synchronously to the caller: the UI cannot
	// safely assume the edit was saved.
	ErrStorageFailure = errors.New("local storage failure")

	// Remote push failure taxonomy. These are classifications, not raw
	// transport errors; the remote layer wraps driver errors into one of
	// them before anything above it gets to see the failure.
	ErrAuthRequired     = errors.New("authentication required")
	ErrNetworkTransient = errors.New("transient network failure")
	ErrPolicyDenied     = errors.New("write denied by remote policy")

	// Session lifecycle errors.
	ErrSessionExpired = errors.New("session expired")
	ErrNoSession      = errors.New("no active session")
)
