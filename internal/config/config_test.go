package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Workspace.Root == "" {
		t.Fatal("expected workspace root to resolve to the temp dir")
	}
	if !cfg.Workspace.Unique {
		t.Fatal("expected unique workspaces by default")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path != missing {
		t.Fatalf("expected resolved path %q, got %q", missing, path)
	}
	if cfg.Render.ManimBinary != "manim" {
		t.Fatalf("expected default manim binary, got %q", cfg.Render.ManimBinary)
	}
	if cfg.Render.TimeoutSeconds != 600 {
		t.Fatalf("expected default timeout 600, got %d", cfg.Render.TimeoutSeconds)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[workspace]
root = "` + dir + `"
unique = false

[render]
manim_binary = "/opt/manim"
timeout_seconds = 120
default_quality = "HIGH"
output_dir = "` + dir + `"

[paths]
log_dir = "` + dir + `"
api_bind = "127.0.0.1:0"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Workspace.Unique {
		t.Fatal("expected unique=false override")
	}
	if cfg.Render.ManimBinary != "/opt/manim" {
		t.Fatalf("expected binary override, got %q", cfg.Render.ManimBinary)
	}
	if cfg.Render.DefaultQuality != "high" {
		t.Fatalf("expected quality normalized to lowercase, got %q", cfg.Render.DefaultQuality)
	}
}

func TestValidateRejectsBadQuality(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Render.DefaultQuality = "potato"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown quality")
	}
	if !strings.Contains(err.Error(), "default_quality") {
		t.Fatalf("expected quality error, got %v", err)
	}
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Render.TimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero timeout")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[render]") {
		t.Fatal("expected sample to contain a [render] section")
	}
}
