package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkov/leadbook/internal/flagx"
	"github.com/avolkov/leadbook/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "2s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type JsonConfig struct {
	RemoteURL       string         `json:"remote_url"`
	RemoteNamespace string         `json:"remote_namespace"`
	RemoteDatabase  string         `json:"remote_database"`
	RemoteScope     string         `json:"remote_scope"`
	DatabasePath    string         `json:"database_path"`
	QuiescenceDelay timex.Duration `json:"quiescence_delay"`
	DriftTolerance  *int           `json:"drift_tolerance"`
	S3Region        string         `json:"s3_region"`
	S3Endpoint      string         `json:"s3_endpoint"`
	S3Bucket        string         `json:"s3_bucket"`
	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; when absent, nothing is loaded.
// Read or unmarshal errors panic, the caller cannot run half-configured.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.RemoteURL != "" {
		cfg.RemoteURL = jc.RemoteURL
	}
	if jc.RemoteNamespace != "" {
		cfg.RemoteNamespace = jc.RemoteNamespace
	}
	if jc.RemoteDatabase != "" {
		cfg.RemoteDatabase = jc.RemoteDatabase
	}
	if jc.RemoteScope != "" {
		cfg.RemoteScope = jc.RemoteScope
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.QuiescenceDelay.Duration != 0 {
		cfg.QuiescenceDelay = time.Duration(jc.QuiescenceDelay.Duration)
	}
	if jc.DriftTolerance != nil {
		cfg.DriftTolerance = *jc.DriftTolerance
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Endpoint != "" {
		cfg.S3Endpoint = jc.S3Endpoint
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
}
