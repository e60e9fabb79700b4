package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReconcileInterval() != 5*time.Minute {
		t.Errorf("ReconcileInterval = %v", cfg.ReconcileInterval())
	}
	if cfg.EventTimeout() != 60*time.Second {
		t.Errorf("EventTimeout = %v", cfg.EventTimeout())
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// JSON5: comments and trailing commas are fine.
	body := `{
		// bot account lives here
		instance: "https://file.example",
		access_token: "file-token",
		reconcile_interval_minutes: 10,
	}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SCRYBOT_ACCESS_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Instance != "https://file.example" {
		t.Errorf("Instance = %q", cfg.Instance)
	}
	if cfg.AccessToken != "env-token" {
		t.Errorf("AccessToken = %q, env must win over file", cfg.AccessToken)
	}
	if cfg.ReconcileInterval() != 10*time.Minute {
		t.Errorf("ReconcileInterval = %v", cfg.ReconcileInterval())
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("empty config should not validate")
	}
	cfg.Instance = "https://ex.social"
	if err := cfg.Validate(); err == nil {
		t.Error("missing token should not validate")
	}
	cfg.AccessToken = "tok"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
