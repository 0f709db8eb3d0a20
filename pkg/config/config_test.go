package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.Runtime.MaxTreeDepth <= 0 {
		t.Error("MaxTreeDepth default should be positive")
	}
	if cfg.Runtime.AsyncTimeout != 30*time.Second {
		t.Errorf("AsyncTimeout = %v, want 30s", cfg.Runtime.AsyncTimeout)
	}
	if cfg.Runtime.DefaultForceUnpack {
		t.Error("DefaultForceUnpack default should be false per spec.md's unpacking default")
	}
	if cfg.Retention.Window <= 0 {
		t.Error("Retention.Window default should be positive")
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
runtime:
  max_tree_depth: 128
  default_force_unpack: true
retention:
  schedule: "@every 30m"
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Runtime.MaxTreeDepth != 128 {
		t.Errorf("MaxTreeDepth = %d, want 128", cfg.Runtime.MaxTreeDepth)
	}
	if !cfg.Runtime.DefaultForceUnpack {
		t.Error("DefaultForceUnpack should have been overridden to true")
	}
	if cfg.Retention.Schedule != "@every 30m" {
		t.Errorf("Retention.Schedule = %q, want \"@every 30m\"", cfg.Retention.Schedule)
	}
	// Fields the file doesn't mention keep their defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (unset in file)", cfg.Server.Port)
	}
}

func TestLoadFile_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v, want nil for a missing file", err)
	}
	if cfg.Runtime.MaxTreeDepth != New().Runtime.MaxTreeDepth {
		t.Error("LoadFile() on a missing file should leave defaults untouched")
	}
}
