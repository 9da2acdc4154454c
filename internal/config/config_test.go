package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Fatalf("port/mode = %d/%q", cfg.Port, cfg.Mode)
	}
	if cfg.Member.PageSize != 10 {
		t.Fatalf("page size = %d, want 10", cfg.Member.PageSize)
	}
	if cfg.Composer.Debounce != 300*time.Millisecond || cfg.Composer.MaxMessageLength != 300 {
		t.Fatalf("composer = %+v", cfg.Composer)
	}
	if cfg.RateLimit.Ops != 5 || cfg.RateLimit.Interval != 10*time.Second {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
mode: debug
port: 9090
member:
  page_size: 25
composer:
  debounce: 150ms
seed:
  users:
    - id: alice
      nickname: Alice
  rooms:
    - id: lobby
      name: Lobby
      owner: alice
      members: [alice, bob]
      muted: [bob]
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Port != 9090 || cfg.Member.PageSize != 25 || cfg.Composer.Debounce != 150*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Seed.Users) != 1 || cfg.Seed.Users[0].Nickname != "Alice" {
		t.Fatalf("seed users = %+v", cfg.Seed.Users)
	}
	if len(cfg.Seed.Rooms) != 1 || cfg.Seed.Rooms[0].Owner != "alice" || len(cfg.Seed.Rooms[0].Muted) != 1 {
		t.Fatalf("seed rooms = %+v", cfg.Seed.Rooms)
	}
}

func TestLoadFromRejectsBadPageSize(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "member:\n  page_size: 0\n")
	_, err := LoadFrom(path)
	if err == nil || !strings.Contains(err.Error(), "page_size") {
		t.Fatalf("err = %v, want page_size error", err)
	}
}
