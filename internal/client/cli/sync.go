package cli

import (
	"context"
	"fmt"
	"log"
)

func (a *App) syncNow(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	result := a.sched.ForceFlush(ctx, a.ownerId)
	if result.Err != nil {
		log.Printf("sync failed: %v", result.Err)
	}
	fmt.Printf("Pushed %d, failed %d\n", result.Pushed, result.Failed)
}

func (a *App) showStatus(ctx context.Context) {
	st, errMsg := a.tracker.Current()
	fmt.Println("Status:", st)
	if errMsg != "" {
		fmt.Println("Last error:", errMsg)
	}
	fmt.Println("Scheduler:", a.sched.State())
}

func (a *App) pending(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	entries, err := a.outbox.Snapshot(ctx, a.ownerId)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(entries) == 0 {
		fmt.Println("Outbox is empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  (queued %s)\n",
			e.Id, e.DisplayName, e.QueuedAt.Local().Format("15:04:05"))
	}
}

func (a *App) resync(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	n, err := a.recon.ResyncAll(ctx, a.ownerId)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Queued %d records for a full re-push\n", n)
}

func (a *App) pull(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	applied, err := a.recon.Pull(ctx, a.ownerId)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Applied %d records from the cloud\n", applied)
}
