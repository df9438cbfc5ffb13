// Package status tracks the process-wide synchronization status the
// rendering layer draws its badge from. The status is explicit state with a
// lifecycle (initialized at session start, reset on sign-out) and a
// subscription API, not an ambient global.
package status

import "sync"

// SyncStatus is the five-state enum the UI renders from.
type SyncStatus string

const (
	Idle        SyncStatus = "idle"
	Saving      SyncStatus = "saving"
	Saved       SyncStatus = "saved"
	PendingSync SyncStatus = "pending_sync"
	Error       SyncStatus = "error"
)

// Tracker holds the current status and the last error message. Saving is
// exclusive: the scheduler guarantees a single flush in flight, the tracker
// only records it.
type Tracker struct {
	mu      sync.Mutex
	current SyncStatus
	lastErr string

	subs    map[int]func(SyncStatus)
	nextSub int
}

func NewTracker() *Tracker {
	return &Tracker{
		current: Idle,
		subs:    make(map[int]func(SyncStatus)),
	}
}

// Set transitions to a new status. The error message is kept only while the
// status is Error.
func (t *Tracker) Set(s SyncStatus, errMsg string) {
	t.mu.Lock()
	t.current = s
	if s == Error {
		t.lastErr = errMsg
	} else {
		t.lastErr = ""
	}
	fns := make([]func(SyncStatus), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Current returns the status and, when in Error, the last error message.
func (t *Tracker) Current() (SyncStatus, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.lastErr
}

// Subscribe registers a callback invoked on every transition.
// The returned function unsubscribes.
func (t *Tracker) Subscribe(fn func(SyncStatus)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// Reset returns the tracker to Idle and clears the error. Called on sign-out.
func (t *Tracker) Reset() {
	t.Set(Idle, "")
}
