package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"mud":{"host":"example.org"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.MUD.Host != "example.org" {
		t.Errorf("host not taken from file: %q", cfg.MUD.Host)
	}
	if cfg.MUD.Port != 2525 {
		t.Errorf("default port: want 2525 got %d", cfg.MUD.Port)
	}
	if cfg.MUD.MaxAttempts != 3 {
		t.Errorf("default attempts: want 3 got %d", cfg.MUD.MaxAttempts)
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("default connect timeout: got %v", cfg.ConnectTimeout())
	}
	if cfg.RetryDelay() != 2*time.Second {
		t.Errorf("default retry delay: got %v", cfg.RetryDelay())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port: got %d", cfg.Server.Port)
	}
	if AppConfig != cfg {
		t.Error("LoadConfig did not install the config")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestBindAddr(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("BIND_ADDR", "")
	if got := cfg.BindAddr(); got != ":8080" {
		t.Errorf("default bind addr: got %q", got)
	}

	t.Setenv("BIND_ADDR", "127.0.0.1:9999")
	if got := cfg.BindAddr(); got != "127.0.0.1:9999" {
		t.Errorf("env override ignored: got %q", got)
	}
}
