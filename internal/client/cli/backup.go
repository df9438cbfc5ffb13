package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) export(ctx context.Context) {
	if !a.requireLogin() {
		return
	}

	path, err := GetSimpleText(a.reader, "-Archive path (e.g. leadbook-backup.json)", os.Stdout)
	if err != nil || path == "" {
		log.Printf("error: no path given")
		return
	}

	answer, err := GetSimpleText(a.reader, "-Encrypt with a passphrase? (yes/no)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if answer == "yes" {
		passphrase, err := GetPassword(os.Stdout)
		if err != nil {
			log.Printf("error: %v", err)
			return
		}
		if err := a.archive.ExportEncrypted(ctx, a.ownerId, path, passphrase); err != nil {
			log.Printf("export failed: %v", err)
			return
		}
	} else {
		if err := a.archive.Export(ctx, a.ownerId, path); err != nil {
			log.Printf("export failed: %v", err)
			return
		}
	}
	fmt.Println("Archive written to", path)
}

func (a *App) importArchive(ctx context.Context) {
	if !a.requireLogin() {
		return
	}

	path, err := GetSimpleText(a.reader, "-Archive path", os.Stdout)
	if err != nil || path == "" {
		log.Printf("error: no path given")
		return
	}

	answer, err := GetSimpleText(a.reader, "-Is the archive encrypted? (yes/no)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	var n int
	if answer == "yes" {
		passphrase, err := GetPassword(os.Stdout)
		if err != nil {
			log.Printf("error: %v", err)
			return
		}
		n, err = a.archive.ImportEncrypted(ctx, path, passphrase)
		if err != nil {
			log.Printf("import failed: %v", err)
			return
		}
	} else {
		n, err = a.archive.Import(ctx, path)
		if err != nil {
			log.Printf("import failed: %v", err)
			return
		}
	}
	fmt.Printf("Restored %d records; they will sync like fresh edits\n", n)
}

func (a *App) pushBackup(ctx context.Context) {
	if !a.requireLogin() {
		return
	}

	path, err := GetSimpleText(a.reader, "-Archive path to upload", os.Stdout)
	if err != nil || path == "" {
		log.Printf("error: no path given")
		return
	}

	key, err := a.archive.Push(ctx, a.ownerId, path)
	if err != nil {
		log.Printf("upload failed: %v", err)
		return
	}
	fmt.Println("Uploaded as", key)
}
