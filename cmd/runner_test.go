package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/shelfsync/internal/shared"
)

func TestNewRunner(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if runner.config == nil {
			t.Error("expected a default config")
		}
		if runner.logger == nil {
			t.Error("expected a default logger")
		}
		if runner.output != os.Stdout {
			t.Error("expected stdout output by default")
		}
	})

	t.Run("register wires every command group", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "play", "session", "bookmarks", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("expected command %q at position %d, got %q", name, i, commands[i].Name)
			}
		}
	})
}

func TestRunnerOutput(t *testing.T) {
	t.Run("writeJSON", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf})

		if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
			t.Fatalf("failed to write JSON: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != `{"key":"value"}` {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("writeJSON pretty", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf})

		if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
			t.Fatalf("failed to write JSON: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Errorf("expected indented output, got %q", buf.String())
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf})

		if err := runner.writePlain("hello %s\n", "world"); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		if buf.String() != "hello world\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

func TestSetupAction(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	dbPath := filepath.Join(tmpDir, "test.db")

	config := `[database]
path = "` + dbPath + `"
max_open_conns = 2
max_idle_conns = 1
`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var buf bytes.Buffer
	runner := NewRunner(RunnerOpts{Output: &buf})

	cmd := setupCommand(runner)
	if err := cmd.Run(context.Background(), []string{"setup", "--config", configPath}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("database should exist after setup: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"connections", "bookmarks", "media_progress"} {
		if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
			t.Errorf("%s table should exist after setup: %v", table, err)
		}
	}
}
