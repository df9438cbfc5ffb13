package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/avolkov/leadbook/internal/client/diagnostics"
)

// doctor runs the write-access probe and, when logged in, the drift check.
// This is the first thing support asks a user to run on a "my changes are
// not saving" report.
func (a *App) doctor(ctx context.Context) {
	owner := a.ownerId
	if owner == "" {
		owner = "_diagnostics"
	}

	report := a.probe.ProbeWriteAccess(ctx, owner)
	fmt.Println("Verdict:", report.Verdict)
	fmt.Println("  local store:", okMark(report.LocalOK))
	fmt.Println("  remote store:", okMark(report.RemoteOK))
	fmt.Println("  elapsed:", report.Elapsed)
	if report.Detail != "" {
		fmt.Println("  detail:", report.Detail)
	}

	switch report.Verdict {
	case diagnostics.VerdictAuthStuck:
		fmt.Println("Try 'login' again; if that fails, 'reset-session'.")
	case diagnostics.VerdictNetworkBlocked:
		fmt.Println("Your data is safe locally and will sync when the network returns.")
	case diagnostics.VerdictPolicyDenied:
		fmt.Println("Your account lacks write permission; contact your administrator.")
	}

	if !a.isLoggedIn() {
		return
	}

	health, err := a.recon.HealthCheck(ctx, a.ownerId)
	if err != nil {
		log.Printf("drift check failed: %v", err)
		return
	}
	fmt.Printf("Records: %d local / %d remote, %d pending\n",
		health.Local, health.Remote, health.PendingQueue)
	if health.DriftDetected {
		fmt.Println("Drift detected: consider 'resync' to re-push local state.")
	}
}

// resetSession wipes cached credentials. Destructive, so it asks first.
func (a *App) resetSession(ctx context.Context) {
	answer, err := GetSimpleText(a.reader,
		"-Reset cached session? Unsynced records stay local. (yes/no)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if strings.ToLower(answer) != "yes" {
		fmt.Println("Cancelled")
		return
	}

	if err := a.probe.ResetSession(ctx); err != nil {
		log.Printf("error: %v", err)
		return
	}
	a.sched.Stop()
	a.tracker.Reset()
	a.ownerId = ""
	fmt.Println("Session reset. Please login again.")
}

func okMark(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}
