// Package diagnostics implements the support probe behind the "my changes
// are not saving" report. It exercises the full write path in isolation,
// local store first and remote store second, and condenses the outcome into
// a verdict a support person can act on.
package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/client/remote"
	"github.com/avolkov/leadbook/internal/client/repositories/records"
	"github.com/avolkov/leadbook/internal/client/session"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/logging"
	"github.com/google/uuid"
)

// probeOwner scopes local probe rows away from real data so a probe never
// shows up in anyone's outbox.
const probeOwner = "_diagnostics"

type Verdict string

const (
	// VerdictHealthy: both stores accept writes, the problem is elsewhere.
	VerdictHealthy Verdict = "healthy"

	// VerdictStorageBroken: the local database rejects writes. Nothing
	// network-related will help.
	VerdictStorageBroken Verdict = "storage_broken"

	// VerdictAuthStuck: local writes work but the session is absent,
	// expired, or rejected. Remediation is re-authentication or, failing
	// that, a session reset.
	VerdictAuthStuck Verdict = "auth_stuck"

	// VerdictNetworkBlocked: the remote store is unreachable. Data is safe
	// locally and will sync once connectivity returns.
	VerdictNetworkBlocked Verdict = "network_blocked"

	// VerdictPolicyDenied: the remote store refuses the write for this
	// account. Needs a permission change, not a retry.
	VerdictPolicyDenied Verdict = "policy_denied"
)

// Report is the outcome of one probe run.
type Report struct {
	Verdict  Verdict
	LocalOK  bool
	RemoteOK bool
	Elapsed  time.Duration
	Detail   string
}

// SessionStore is the slice of the session manager the probe needs.
type SessionStore interface {
	Current(ctx context.Context) (*session.Session, error)
	Reset(ctx context.Context) error
}

type Probe struct {
	repo     records.Repository
	remote   remote.Remote
	sessions SessionStore
	log      logging.Logger
	now      func() time.Time
}

func New(repo records.Repository, rmt remote.Remote, sessions SessionStore, log logging.Logger) *Probe {
	return &Probe{
		repo:     repo,
		remote:   rmt,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// ProbeWriteAccess writes a synthetic record through each store, reads it
// back, and cleans up after itself. Each phase is timed and logged so a
// support bundle shows where the latency sits.
func (p *Probe) ProbeWriteAccess(ctx context.Context, ownerId string) Report {
	started := p.now()
	report := Report{Verdict: VerdictHealthy}

	if err := p.probeLocal(ctx); err != nil {
		report.Verdict = VerdictStorageBroken
		report.Detail = err.Error()
		report.Elapsed = p.now().Sub(started)
		p.log.Error(ctx, "probe: local write failed", "error", err, "elapsed", report.Elapsed)
		return report
	}
	report.LocalOK = true
	p.log.Info(ctx, "probe: local write ok", "elapsed", p.now().Sub(started))

	if err := p.probeRemote(ctx, ownerId); err != nil {
		report.Verdict = classifyRemote(err)
		report.Detail = err.Error()
		report.Elapsed = p.now().Sub(started)
		p.log.Error(ctx, "probe: remote write failed",
			"verdict", report.Verdict, "error", err, "elapsed", report.Elapsed)
		return report
	}
	report.RemoteOK = true
	report.Elapsed = p.now().Sub(started)
	p.log.Info(ctx, "probe: remote write ok", "elapsed", report.Elapsed)
	return report
}

func (p *Probe) probeLocal(ctx context.Context) error {
	payload := []byte(fmt.Sprintf(`{"probe":%q}`, uuid.NewString()))
	rec := &models.Record{
		Id:                "probe-" + uuid.NewString(),
		OwnerId:           probeOwner,
		DisplayName:       "write probe",
		Payload:           payload,
		LastModifiedLocal: p.now().UTC(),
	}

	if err := p.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	defer func() {
		if err := p.repo.Purge(context.WithoutCancel(ctx), rec.Id); err != nil {
			p.log.Warn(ctx, "probe: local cleanup failed", "id", rec.Id, "error", err)
		}
	}()

	got, err := p.repo.Get(ctx, rec.Id)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if !bytes.Equal(got.Payload, payload) {
		return fmt.Errorf("read back: payload mismatch")
	}
	return nil
}

func (p *Probe) probeRemote(ctx context.Context, ownerId string) error {
	sess, err := p.sessions.Current(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuthRequired, err)
	}
	if err := p.remote.Authenticate(ctx, sess.Token); err != nil {
		return err
	}

	rec := &models.Record{
		Id:                "probe-" + uuid.NewString(),
		OwnerId:           ownerId,
		DisplayName:       "write probe",
		Payload:           []byte(`{"probe":true}`),
		LastModifiedLocal: p.now().UTC(),
	}

	if _, err := p.remote.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	defer func() {
		if err := p.remote.Delete(context.WithoutCancel(ctx), rec.Id); err != nil {
			p.log.Warn(ctx, "probe: remote cleanup failed", "id", rec.Id, "error", err)
		}
	}()

	if _, err := p.remote.Get(ctx, rec.Id); err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	return nil
}

// ResetSession wipes cached credentials and drops the remote connection.
// The destructive last-resort remediation; the caller confirms with the
// user first.
func (p *Probe) ResetSession(ctx context.Context) error {
	if err := p.sessions.Reset(ctx); err != nil {
		return err
	}
	p.remote.Close()
	return nil
}

func classifyRemote(err error) Verdict {
	switch {
	case errors.Is(err, common.ErrAuthRequired),
		errors.Is(err, common.ErrNoSession),
		errors.Is(err, common.ErrSessionExpired):
		return VerdictAuthStuck
	case errors.Is(err, common.ErrPolicyDenied):
		return VerdictPolicyDenied
	default:
		return VerdictNetworkBlocked
	}
}
