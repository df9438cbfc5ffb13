package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// watchVisibility maps process suspension signals onto the scheduler's
// visibility transitions: SIGTSTP (terminal stop) behaves like the app going
// to the background, SIGCONT like returning to the foreground. Registered
// exactly once, from Run.
func (a *App) watchVisibility(ctx context.Context) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGTSTP, syscall.SIGCONT)
	defer signal.Stop(ch)

	for {
		select {
		case sig := <-ch:
			switch sig {
			case syscall.SIGTSTP:
				a.sched.AppHidden(ctx)
				// hand control back to the shell after deferring the flush
				_ = syscall.Kill(syscall.Getpid(), syscall.SIGSTOP)
			case syscall.SIGCONT:
				if a.ownerId != "" {
					a.sched.AppVisible(ctx, a.ownerId)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
