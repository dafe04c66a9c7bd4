// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"sceneforge/internal/config"
)

// NewConfig returns a validated config rooted in per-test temp directories.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Workspace.Root = filepath.Join(base, "work")
	cfg.Workspace.Unique = true
	cfg.Render.TimeoutSeconds = 5
	cfg.Render.OutputDir = filepath.Join(base, "videos")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config should validate: %v", err)
	}
	return &cfg
}
