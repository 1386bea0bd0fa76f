package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
timezone: UTC
logging:
  level: debug
  console: true
scheduler:
  workers: 4
  default_lead_time_minutes: 10
dispatch:
  driver: dryrun
store:
  driver: rest
  rest_url: https://example.supabase.co
  rest_api_key: key
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "UTC" {
		t.Fatalf("Timezone = %q", cfg.Timezone)
	}
	if cfg.Scheduler.Workers != 4 || cfg.Scheduler.DefaultLeadTimeMinutes != 10 {
		t.Fatalf("scheduler config = %+v", cfg.Scheduler)
	}
	if cfg.Dispatch.Driver != "dryrun" {
		t.Fatalf("dispatch driver = %q", cfg.Dispatch.Driver)
	}
	// Defaults fill what the file omits.
	if cfg.Scheduler.QueueSize != 256 {
		t.Fatalf("QueueSize default = %d", cfg.Scheduler.QueueSize)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
timezone: UTC
schduler:
  workers: 4
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for misspelled section")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"timezone":"Asia/Kolkata","dispatch":{"driver":"fcm","credentials_path":"/etc/secrets/fcm.json"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatch.CredentialsPath != "/etc/secrets/fcm.json" {
		t.Fatalf("credentials path = %q", cfg.Dispatch.CredentialsPath)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `timezone: ""`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Kolkata" {
		t.Fatalf("Timezone default = %q", cfg.Timezone)
	}
	if cfg.Scheduler.DefaultLeadTimeMinutes != 5 {
		t.Fatalf("lead time default = %d", cfg.Scheduler.DefaultLeadTimeMinutes)
	}
}
