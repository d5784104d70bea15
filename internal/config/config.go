// Package config loads runtime configuration for the lotbook sync
// subsystem.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson), path supplied by the embedding
//     application.
//  3. Environment variables (see parseEnv), which override earlier values.
//
// The subsystem is embedded inside an interactive application and exposes
// no process entry points, so there are no command-line flags.
package config

import "time"

// Config holds runtime settings for the sync subsystem.
//
// Fields:
//   - RemoteBaseURL: base URL of the backend catalog API.
//   - DataDir: directory for the device-resident cache database.
//   - SyncTimeout: ceiling for one priority sync pass.
//   - ProbeInterval: how often the connectivity monitor probes reachability.
//   - S3Region / S3Bucket / S3BaseEndpoint / S3AccessKey / S3SecretKey:
//     object storage settings for photo blobs.
type Config struct {
	RemoteBaseURL string
	DataDir       string
	SyncTimeout   time.Duration
	ProbeInterval time.Duration

	S3Region       string
	S3Bucket       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.RemoteBaseURL = "http://127.0.0.1:8080"
	c.DataDir = "data"
	c.SyncTimeout = 30 * time.Second
	c.ProbeInterval = 3 * time.Second
	c.S3Region = "us-east-1"
	c.S3Bucket = "photos"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file (empty path skips it) and finally from
// environment variables.
func LoadConfig(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, jsonPath); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
