package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Namespace = "docket-test"
	cfg.Marketplace = true
	cfg.Redis.Addr = "redis.internal:6380"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Namespace != "docket-test" {
		t.Errorf("Namespace = %q, want %q", loaded.Namespace, "docket-test")
	}
	if !loaded.Marketplace {
		t.Error("Marketplace = false, want true")
	}
	if loaded.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q, want %q", loaded.Redis.Addr, "redis.internal:6380")
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != "redis" {
		t.Errorf("Backend = %q, want redis", cfg.Backend)
	}
	if cfg.Auth.Mode != "interactive" {
		t.Errorf("Auth.Mode = %q, want interactive", cfg.Auth.Mode)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("backend = \"mongo\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for unknown backend")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
