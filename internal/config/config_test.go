package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Intake.AttemptTimeout != DefaultAttemptTimeout {
		t.Fatalf("attempt timeout = %v", cfg.Intake.AttemptTimeout)
	}
	if cfg.Intake.SessionTimeout != DefaultSessionTimeout {
		t.Fatalf("session timeout = %v", cfg.Intake.SessionTimeout)
	}
	if cfg.Data.Root != DefaultDataRoot {
		t.Fatalf("data root = %q", cfg.Data.Root)
	}
	if cfg.Janitor.Schedule != DefaultJanitorSchedule {
		t.Fatalf("janitor schedule = %q", cfg.Janitor.Schedule)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[log]
level = "debug"
format = "json"

[discord]
token = "token-123"
guild_id = "42"

[intake]
attempt_timeout = "30s"

[postgres]
enabled = true
database = "embeds"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log config = %+v", cfg.Log)
	}
	if cfg.Discord.Token != "token-123" {
		t.Fatalf("token = %q", cfg.Discord.Token)
	}
	if cfg.Intake.AttemptTimeout != 30*time.Second {
		t.Fatalf("attempt timeout = %v", cfg.Intake.AttemptTimeout)
	}
	// Untouched sections keep defaults.
	if cfg.Intake.SessionTimeout != DefaultSessionTimeout {
		t.Fatalf("session timeout = %v", cfg.Intake.SessionTimeout)
	}
	if !cfg.Postgres.Enabled || cfg.Postgres.Database != "embeds" {
		t.Fatalf("postgres config = %+v", cfg.Postgres)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing discord token")
	}

	cfg.Discord.Token = "t"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Admin.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for admin api without token")
	}
	cfg.Admin.Token = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
