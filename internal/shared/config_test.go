package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "shelfsync.db" {
			t.Errorf("expected database path shelfsync.db, got %s", config.Database.Path)
		}

		if config.Playback.InactivityTimeoutMinutes != 10 {
			t.Errorf("expected 10 minute inactivity timeout, got %d", config.Playback.InactivityTimeoutMinutes)
		}

		if config.Sync.MinListenedSeconds != 20.0 {
			t.Errorf("expected 20s listened threshold, got %f", config.Sync.MinListenedSeconds)
		}

		if config.Sync.MinIntervalSeconds != 10.0 {
			t.Errorf("expected 10s sync interval, got %f", config.Sync.MinIntervalSeconds)
		}

		if config.OIDC.RedirectURI != "shelfsync://oauth/callback" {
			t.Errorf("expected default redirect URI, got %s", config.OIDC.RedirectURI)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[playback]
inactivity_timeout_minutes = 5
force_transcode = true

[sync]
min_listened_seconds = 30.0
min_interval_seconds = 15.0
bookmark_sweep_per_sec = 2.0

[oidc]
client_id = "test_client_id"
redirect_uri = "http://localhost:3000/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Playback.InactivityTimeoutMinutes != 5 {
			t.Errorf("expected 5 minute timeout, got %d", config.Playback.InactivityTimeoutMinutes)
		}

		if !config.Playback.ForceTranscode {
			t.Error("expected force_transcode to load")
		}

		if config.OIDC.ClientID != "test_client_id" {
			t.Errorf("expected oidc client_id test_client_id, got %s", config.OIDC.ClientID)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
