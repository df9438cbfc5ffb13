// Package config loads runtime configuration for the leadbook CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-r string   websocket URL of the cloud store
//	-f string   path of the local database file
//	-q int      quiescence delay (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "2s" or integer nanoseconds:
//
//	{
//	  "remote_url": "ws://127.0.0.1:8000/rpc",
//	  "database_path": "leadbook.db",
//	  "quiescence_delay": "2s",
//	  "drift_tolerance": 2
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
