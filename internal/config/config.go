// Package config loads scrybot's configuration from a JSON5 file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/titanous/json5"
)

// Config is the root configuration.
type Config struct {
	// Instance is the Mastodon instance base URL, e.g. "https://botsin.space".
	Instance string `json:"instance"`

	// AccessToken authenticates the bot. SCRYBOT_ACCESS_TOKEN overrides the
	// file value, so the token can stay out of the config entirely.
	AccessToken string `json:"access_token,omitempty"`

	// ReconcileIntervalMinutes is the pause between follower reconciliation
	// cycles.
	ReconcileIntervalMinutes int `json:"reconcile_interval_minutes,omitempty"`

	// EventTimeoutSeconds bounds one stream event's reply pipeline.
	EventTimeoutSeconds int `json:"event_timeout_seconds,omitempty"`

	// ScryfallBaseURL overrides the card API endpoint (tests, mirrors).
	ScryfallBaseURL string `json:"scryfall_base_url,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ReconcileIntervalMinutes: 5,
		EventTimeoutSeconds:      60,
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing file
// is not an error — env vars alone can carry a full configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("SCRYBOT_INSTANCE", &c.Instance)
	envStr("SCRYBOT_ACCESS_TOKEN", &c.AccessToken)
	envStr("SCRYBOT_SCRYFALL_BASE_URL", &c.ScryfallBaseURL)
}

// Validate checks that the config is runnable.
func (c *Config) Validate() error {
	if c.Instance == "" {
		return fmt.Errorf("config: instance URL is required (set instance or SCRYBOT_INSTANCE)")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("config: access token is required (set access_token or SCRYBOT_ACCESS_TOKEN)")
	}
	return nil
}

// ReconcileInterval returns the reconciler cycle interval.
func (c *Config) ReconcileInterval() time.Duration {
	if c.ReconcileIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ReconcileIntervalMinutes) * time.Minute
}

// EventTimeout returns the per-event pipeline timeout.
func (c *Config) EventTimeout() time.Duration {
	if c.EventTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.EventTimeoutSeconds) * time.Second
}
