package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/avolkov/leadbook/internal/client/models"
)

func (a *App) list(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	items, err := a.store.List(ctx, a.ownerId)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(items) == 0 {
		fmt.Println("No records yet")
		return
	}
	for _, item := range items {
		marker := " "
		if !item.Synced() {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, item.Id, item.DisplayName)
	}
}

func (a *App) show(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: show <id>")
		return
	}
	rec, err := a.store.Get(ctx, args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}

	fmt.Printf("%s  %s\n", rec.Id, rec.DisplayName)
	var fields map[string]any
	if err := json.Unmarshal(rec.Payload, &fields); err == nil {
		for name, value := range fields {
			fmt.Printf("  %s: %v\n", name, value)
		}
	}
	if rec.Synced() {
		fmt.Println("  synced:", rec.LastSyncedRemote.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("  awaiting sync")
	}
}

func (a *App) add(ctx context.Context) {
	if !a.requireLogin() {
		return
	}

	name, err := GetSimpleText(a.reader, "-Enter display name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	fields, err := GetFields(a.reader, os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	rec := &models.Record{OwnerId: a.ownerId, DisplayName: name, Payload: payload}
	if err := a.store.Put(ctx, rec); err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Println("Saved", rec.Id)
}

func (a *App) edit(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: edit <id>")
		return
	}

	rec, err := a.store.Get(ctx, args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}

	name, err := GetSimpleText(a.reader, fmt.Sprintf("-Enter display name [%s]", rec.DisplayName), os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if name != "" {
		rec.DisplayName = name
	}

	fields, err := GetFields(a.reader, os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if len(fields) > 0 {
		payload, err := json.Marshal(fields)
		if err != nil {
			log.Printf("error: %v", err)
			return
		}
		rec.Payload = payload
	}

	if err := a.store.Put(ctx, rec); err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Println("Saved", rec.Id)
}

func (a *App) remove(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: rm <id>")
		return
	}
	if err := a.store.Delete(ctx, args[0]); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Deleted; removal syncs with the next flush")
}
