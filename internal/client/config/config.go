package config

import "time"

// Config holds runtime settings for the leadbook CLI.
//
// Units: QuiescenceDelay is a time.Duration (e.g., 2*time.Second).
// DriftTolerance is an absolute record-count difference.
type Config struct {
	// RemoteURL is the websocket endpoint of the cloud store.
	RemoteURL       string
	RemoteNamespace string
	RemoteDatabase  string
	RemoteScope     string

	// DatabasePath is the local SQLite file.
	DatabasePath string

	// QuiescenceDelay is how long the scheduler waits after the last edit
	// before flushing.
	QuiescenceDelay time.Duration

	// DriftTolerance is the allowed local/remote count difference before a
	// health check reports drift.
	DriftTolerance int

	// Optional S3-compatible storage for backup archives. Backups stay
	// local when Bucket is empty.
	S3Region    string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RemoteURL = "ws://127.0.0.1:8000/rpc"
	c.RemoteNamespace = "leadbook"
	c.RemoteDatabase = "main"
	c.RemoteScope = "account"
	c.DatabasePath = "leadbook.db"
	c.QuiescenceDelay = 2 * time.Second
	c.DriftTolerance = 2
	c.S3Region = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
