// Package scheduler owns synchronization timing: it debounces bursts of
// local edits into a single flush, reacts to application visibility
// transitions, and exposes the manual flush/retry entry points.
//
// The state machine is Idle -> Armed -> Flushing -> Idle. Flushing acts as a
// mutex: at most one flush is in flight, and at most one quiescence timer is
// pending at any time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/client/status"
	"github.com/avolkov/leadbook/internal/logging"
)

// DefaultQuiescenceDelay is how long the scheduler waits after the last
// local edit before flushing. Repeated edits restart the wait.
const DefaultQuiescenceDelay = 2 * time.Second

type State int

const (
	Idle State = iota
	Armed
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Flushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Flusher performs the actual reconciliation pass. Implemented by the
// reconciler; faked in tests.
type Flusher interface {
	Flush(ctx context.Context, ownerId string) models.FlushResult
}

// SessionChecker reports whether an authenticated, non-expired session is
// available. The scheduler never flushes without one.
type SessionChecker interface {
	HasSession(ctx context.Context) bool
}

// PendingCounter reports the outbox size, used on visibility transitions.
type PendingCounter interface {
	Size(ctx context.Context, ownerId string) (int, error)
}

type Config struct {
	QuiescenceDelay time.Duration
}

func DefaultConfig() Config {
	return Config{QuiescenceDelay: DefaultQuiescenceDelay}
}

type Scheduler struct {
	flusher  Flusher
	sessions SessionChecker
	pending  PendingCounter
	tracker  *status.Tracker
	log      logging.Logger
	cfg      Config

	mu      sync.Mutex
	state   State
	ownerId string
	timer   *time.Timer

	// inflight is non-nil exactly while state == Flushing; waiters on
	// ForceFlush share its result instead of double-dispatching.
	inflight *flight
}

type flight struct {
	done   chan struct{}
	result models.FlushResult
}

func New(flusher Flusher, sessions SessionChecker, pending PendingCounter, tracker *status.Tracker, log logging.Logger, cfg Config) *Scheduler {
	if cfg.QuiescenceDelay <= 0 {
		cfg.QuiescenceDelay = DefaultQuiescenceDelay
	}
	return &Scheduler{
		flusher:  flusher,
		sessions: sessions,
		pending:  pending,
		tracker:  tracker,
		log:      log,
		cfg:      cfg,
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RecordChanged is the store's change notification hook. While Idle or
// Armed it (re)starts the quiescence timer; a burst of edits therefore
// produces exactly one flush after the user pauses. A change arriving while
// Flushing re-arms afterwards via the pending check in finishFlush.
func (s *Scheduler) RecordChanged(ownerId string) {
	// status first, outside the lock: subscribers may call back into the
	// scheduler
	s.tracker.Set(status.PendingSync, "")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ownerId = ownerId

	if s.state == Flushing {
		// the per-record dirty check keeps this safe; the record will be
		// picked up by the next flush
		return
	}

	s.state = Armed
	s.armLocked()
}

// armLocked (re)starts the single quiescence timer. Caller holds s.mu.
func (s *Scheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.QuiescenceDelay, s.timerFired)
}

func (s *Scheduler) timerFired() {
	s.mu.Lock()
	if s.state != Armed {
		s.mu.Unlock()
		return
	}
	ctx := context.Background()

	if !s.sessions.HasSession(ctx) {
		// saved locally, waiting for an authenticated session; do not spin
		s.log.Info(ctx, "flush deferred, no active session")
		s.state = Idle
		s.mu.Unlock()
		return
	}

	fl := s.beginFlushLocked()
	owner := s.ownerId
	s.mu.Unlock()

	s.runFlush(ctx, owner, fl)
}

// beginFlushLocked transitions to Flushing and registers the in-flight
// marker. Caller holds s.mu.
func (s *Scheduler) beginFlushLocked() *flight {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = Flushing
	s.inflight = &flight{done: make(chan struct{})}
	return s.inflight
}

func (s *Scheduler) runFlush(ctx context.Context, ownerId string, fl *flight) models.FlushResult {
	s.tracker.Set(status.Saving, "")
	result := s.flusher.Flush(ctx, ownerId)

	s.mu.Lock()
	fl.result = result
	close(fl.done)
	s.inflight = nil
	s.state = Idle
	s.mu.Unlock()

	s.finishFlush(ctx, ownerId, result)
	return result
}

func (s *Scheduler) finishFlush(ctx context.Context, ownerId string, result models.FlushResult) {
	switch {
	case result.Err != nil:
		s.tracker.Set(status.Error, result.Err.Error())
	default:
		left, err := s.pending.Size(ctx, ownerId)
		if err == nil && left > 0 {
			// edited again while the push was in flight
			s.tracker.Set(status.PendingSync, "")
			s.mu.Lock()
			if s.state == Idle {
				s.state = Armed
				s.armLocked()
			}
			s.mu.Unlock()
			return
		}
		s.tracker.Set(status.Saved, "")
	}
}

// ForceFlush is the manual "sync now" / retry entry point. It is
// idempotent: when a flush is already in flight it waits for that result
// instead of dispatching a second one.
func (s *Scheduler) ForceFlush(ctx context.Context, ownerId string) models.FlushResult {
	s.mu.Lock()
	if s.state == Flushing {
		fl := s.inflight
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.result
		case <-ctx.Done():
			return models.FlushResult{Err: ctx.Err()}
		}
	}

	s.ownerId = ownerId
	fl := s.beginFlushLocked()
	s.mu.Unlock()

	return s.runFlush(ctx, ownerId, fl)
}

// AppHidden handles the application-backgrounding signal. It cancels any
// pending timer and must never start a network call: the environment may
// suspend the process mid-request, producing a corrupt or duplicate write.
// Local state is already durable because every Put is synchronous.
func (s *Scheduler) AppHidden(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == Armed {
		s.state = Idle
	}
	s.log.Debug(ctx, "app hidden, flush deferred to next foreground")
}

// AppVisible handles the foreground transition: it re-arms immediately when
// work is pending. Exactly one component may own this signal (enforced at
// the composition root) so a transition never triggers duplicate flushes.
func (s *Scheduler) AppVisible(ctx context.Context, ownerId string) {
	n, err := s.pending.Size(ctx, ownerId)
	if err != nil {
		s.log.Warn(ctx, "pending check failed on foreground", "error", err)
		return
	}
	if n == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Flushing {
		return
	}
	s.ownerId = ownerId
	s.state = Armed
	s.armLocked()
}

// Stop cancels any pending timer. An in-flight flush is not cancelled; its
// result is applied when it resolves.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == Armed {
		s.state = Idle
	}
}
