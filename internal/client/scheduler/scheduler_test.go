package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/client/status"
	"github.com/avolkov/leadbook/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	mu      sync.Mutex
	calls   int32
	results []models.FlushResult
	block   chan struct{} // when non-nil, Flush waits on it
}

func (f *fakeFlusher) Flush(ctx context.Context, ownerId string) models.FlushResult {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) > 0 {
		r := f.results[0]
		f.results = f.results[1:]
		return r
	}
	return models.FlushResult{Pushed: 1}
}

func (f *fakeFlusher) count() int { return int(atomic.LoadInt32(&f.calls)) }

type fakeSessions struct{ ok bool }

func (f *fakeSessions) HasSession(ctx context.Context) bool { return f.ok }

type fakePending struct{ n int32 }

func (f *fakePending) Size(ctx context.Context, ownerId string) (int, error) {
	return int(atomic.LoadInt32(&f.n)), nil
}

func newTestScheduler(fl *fakeFlusher, sess *fakeSessions, pend *fakePending, delay time.Duration) (*Scheduler, *status.Tracker) {
	tr := status.NewTracker()
	s := New(fl, sess, pend, tr, logging.NewNoopLogger(), Config{QuiescenceDelay: delay})
	return s, tr
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestDebounce_BurstCoalescesIntoOneFlush(t *testing.T) {
	fl := &fakeFlusher{}
	s, _ := newTestScheduler(fl, &fakeSessions{ok: true}, &fakePending{}, 30*time.Millisecond)
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.RecordChanged("owner1")
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool { return fl.count() == 1 })
	// quiet period: no further flushes
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, fl.count(), "a burst of edits must produce exactly one flush")
	assert.Equal(t, Idle, s.State())
}

func TestTimer_NoFlushWithoutSession(t *testing.T) {
	fl := &fakeFlusher{}
	s, _ := newTestScheduler(fl, &fakeSessions{ok: false}, &fakePending{n: 1}, 20*time.Millisecond)
	defer s.Stop()

	s.RecordChanged("owner1")
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 0, fl.count())
	assert.Equal(t, Idle, s.State())
}

func TestAppHidden_NeverTriggersNetwork(t *testing.T) {
	fl := &fakeFlusher{}
	s, _ := newTestScheduler(fl, &fakeSessions{ok: true}, &fakePending{n: 1}, 20*time.Millisecond)
	defer s.Stop()

	s.RecordChanged("owner1")
	s.AppHidden(context.Background())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, fl.count(), "backgrounding must cancel the timer, not flush")
	assert.Equal(t, Idle, s.State())
}

func TestAppVisible_ReArmsWhenPending(t *testing.T) {
	fl := &fakeFlusher{}
	pend := &fakePending{n: 1}
	s, _ := newTestScheduler(fl, &fakeSessions{ok: true}, pend, 20*time.Millisecond)
	defer s.Stop()

	s.AppVisible(context.Background(), "owner1")
	waitFor(t, func() bool { return fl.count() == 1 })
}

func TestAppVisible_NoopWhenQueueEmpty(t *testing.T) {
	fl := &fakeFlusher{}
	s, _ := newTestScheduler(fl, &fakeSessions{ok: true}, &fakePending{n: 0}, 20*time.Millisecond)
	defer s.Stop()

	s.AppVisible(context.Background(), "owner1")
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, fl.count())
}

func TestForceFlush_IdempotentWhileInFlight(t *testing.T) {
	fl := &fakeFlusher{block: make(chan struct{})}
	fl.results = []models.FlushResult{{Pushed: 3}}
	s, _ := newTestScheduler(fl, &fakeSessions{ok: true}, &fakePending{}, time.Hour)
	defer s.Stop()

	var first, second models.FlushResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		first = s.ForceFlush(context.Background(), "owner1")
	}()
	waitFor(t, func() bool { return s.State() == Flushing })
	go func() {
		defer wg.Done()
		second = s.ForceFlush(context.Background(), "owner1")
	}()

	time.Sleep(20 * time.Millisecond)
	close(fl.block)
	wg.Wait()

	assert.Equal(t, 1, fl.count(), "second ForceFlush must join the in-flight one")
	assert.Equal(t, 3, first.Pushed)
	assert.Equal(t, first, second)
}

func TestFlushError_SetsErrorStatus(t *testing.T) {
	fl := &fakeFlusher{results: []models.FlushResult{{Pushed: 2, Failed: 1, Err: assert.AnError}}}
	s, tr := newTestScheduler(fl, &fakeSessions{ok: true}, &fakePending{n: 1}, time.Hour)
	defer s.Stop()

	res := s.ForceFlush(context.Background(), "owner1")
	require.Error(t, res.Err)

	st, msg := tr.Current()
	assert.Equal(t, status.Error, st)
	assert.NotEmpty(t, msg)
}

func TestFlushSuccess_WithRemainder_ReArms(t *testing.T) {
	fl := &fakeFlusher{}
	pend := &fakePending{n: 2}
	s, tr := newTestScheduler(fl, &fakeSessions{ok: true}, pend, 20*time.Millisecond)
	defer s.Stop()

	s.ForceFlush(context.Background(), "owner1")

	st, _ := tr.Current()
	assert.Equal(t, status.PendingSync, st, "leftover work shows as pending, not saved")

	// and the scheduler went back for it
	waitFor(t, func() bool { return fl.count() >= 2 })
}

func TestFlushSuccess_CleanQueue_SetsSaved(t *testing.T) {
	fl := &fakeFlusher{}
	s, tr := newTestScheduler(fl, &fakeSessions{ok: true}, &fakePending{n: 0}, time.Hour)
	defer s.Stop()

	s.ForceFlush(context.Background(), "owner1")

	st, _ := tr.Current()
	assert.Equal(t, status.Saved, st)
}
