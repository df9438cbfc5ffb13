package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkov/leadbook/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   websocket URL of the cloud store
//	-f string   path of the local database file
//	-q int      quiescence delay in seconds
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-f", "-q"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteURL, "r", cfg.RemoteURL, "websocket URL of the cloud store")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "path of the local database file")
	quiescence := fs.Int("q", int(cfg.QuiescenceDelay.Seconds()), "quiescence delay (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.QuiescenceDelay = time.Duration(*quiescence) * time.Second
}
