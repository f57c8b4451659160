package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Expected an error for an explicitly named missing file")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "skladtrack.db" {
		t.Errorf("database.path: got %q", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("server.addr: got %q", cfg.Server.Addr)
	}
	if cfg.Archive.CooldownDays != 7 {
		t.Errorf("archive.cooldownDays: got %d", cfg.Archive.CooldownDays)
	}
	if cfg.Cooldown() != 7*24*time.Hour {
		t.Errorf("Cooldown: got %v", cfg.Cooldown())
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  path: /tmp/test.db
server:
  addr: ":9000"
archive:
  cooldownDays: 3
  cron: "0 4 * * *"
actor: shopfloor
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("database.path: got %q", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("server.addr: got %q", cfg.Server.Addr)
	}
	if cfg.Archive.CooldownDays != 3 {
		t.Errorf("archive.cooldownDays: got %d", cfg.Archive.CooldownDays)
	}
	if cfg.Actor != "shopfloor" {
		t.Errorf("actor: got %q", cfg.Actor)
	}
}

func TestLoad_InvalidCooldown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("archive:\n  cooldownDays: 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected a validation error for cooldownDays 0")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SKLADTRACK_SERVER_ADDR", ":7777")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("Env override not applied: got %q", cfg.Server.Addr)
	}
}
