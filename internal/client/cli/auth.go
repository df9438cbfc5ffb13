package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) Login(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "-Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	token, err := a.remote.SignIn(ctx, email, string(password))
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return
	}

	sess, err := a.sessions.SaveFromToken(ctx, token, email)
	if err != nil {
		log.Printf("error caching session: %s", err.Error())
		return
	}

	a.ownerId = sess.UserId
	fmt.Println("Login successful")

	// anything left over from a previous run syncs right away
	a.sched.AppVisible(ctx, a.ownerId)
}

func (a *App) Logout(ctx context.Context) {
	if err := a.sessions.Reset(ctx); err != nil {
		log.Printf("error: %v", err)
		return
	}
	a.sched.Stop()
	a.tracker.Reset()
	a.ownerId = ""
	fmt.Println("Logged out. Unsynced changes stay on this device until the next login.")
}
