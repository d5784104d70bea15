package config

import (
	"fmt"
	"os"
	"time"
)

// Environment variable names recognized by parseEnv.
const (
	EnvRemoteBaseURL  = "LOTBOOK_REMOTE_BASE_URL"
	EnvDataDir        = "LOTBOOK_DATA_DIR"
	EnvSyncTimeout    = "LOTBOOK_SYNC_TIMEOUT"
	EnvProbeInterval  = "LOTBOOK_PROBE_INTERVAL"
	EnvS3Region       = "LOTBOOK_S3_REGION"
	EnvS3Bucket       = "LOTBOOK_S3_BUCKET"
	EnvS3BaseEndpoint = "LOTBOOK_S3_BASE_ENDPOINT"
	EnvS3AccessKey    = "LOTBOOK_S3_ACCESS_KEY"
	EnvS3SecretKey    = "LOTBOOK_S3_SECRET_KEY"
)

// parseEnv overlays cfg with values from environment variables. Unset
// variables keep their earlier values; durations use time.ParseDuration
// syntax ("30s", "1m").
func parseEnv(cfg *Config) error {
	if v := os.Getenv(EnvRemoteBaseURL); v != "" {
		cfg.RemoteBaseURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvSyncTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSyncTimeout, err)
		}
		cfg.SyncTimeout = d
	}
	if v := os.Getenv(EnvProbeInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvProbeInterval, err)
		}
		cfg.ProbeInterval = d
	}
	if v := os.Getenv(EnvS3Region); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv(EnvS3BaseEndpoint); v != "" {
		cfg.S3BaseEndpoint = v
	}
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		cfg.S3AccessKey = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		cfg.S3SecretKey = v
	}
	return nil
}
