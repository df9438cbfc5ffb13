package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.ownerId != "" {
		s = a.ownerId + " "
	}
	st, errMsg := a.tracker.Current()
	s += string(st)
	if errMsg != "" {
		s += "!"
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to leadbook CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("lb %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: (l)ist, show <id>, add, edit <id>, rm <id>, sync, status, pending, resync, pull, doctor, export, import, backup, reset-session, logout, exit")
			} else {
				fmt.Println("Available commands: login, doctor, reset-session, exit")
			}

		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)
		case "l", "list":
			a.list(ctx)
		case "show":
			a.show(ctx, args)
		case "add":
			a.add(ctx)
		case "edit":
			a.edit(ctx, args)
		case "rm", "delete":
			a.remove(ctx, args)
		case "sync":
			a.syncNow(ctx)
		case "status":
			a.showStatus(ctx)
		case "pending":
			a.pending(ctx)
		case "resync":
			a.resync(ctx)
		case "pull":
			a.pull(ctx)
		case "doctor":
			a.doctor(ctx)
		case "export":
			a.export(ctx)
		case "import":
			a.importArchive(ctx)
		case "backup":
			a.pushBackup(ctx)
		case "reset-session":
			a.resetSession(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

// requireLogin gates commands that need an owner scope.
func (a *App) requireLogin() bool {
	if !a.isLoggedIn() {
		fmt.Println("Please login first")
		return false
	}
	return true
}
