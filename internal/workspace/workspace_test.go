package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"sceneforge/internal/logging"
)

func TestAcquireUniqueCreatesDistinctDirs(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), true, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	a, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer a.Release()

	b, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer b.Release()

	if a.Dir == b.Dir {
		t.Fatalf("expected distinct dirs, both %q", a.Dir)
	}
	for _, ws := range []*Workspace{a, b} {
		info, err := os.Stat(ws.Dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("workspace dir missing: %v", err)
		}
	}
}

func TestAcquireSharedReusesAndClears(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root, false, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	a, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	leftover := filepath.Join(a.Dir, "stale.mp4")
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}

	b, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a.Dir != b.Dir {
		t.Fatalf("expected shared dir, got %q and %q", a.Dir, b.Dir)
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Fatal("expected shared workspace to be cleared on reacquire")
	}
}

func TestReleaseRemovesDir(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), true, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ws, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ws.Release()
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatal("expected workspace to be removed")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), true, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ws, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ws.Release()
	ws.Release()
}

func TestWriteScript(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), true, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ws, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()

	path, err := ws.WriteScript("", []byte("from manim import *\n"))
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if filepath.Base(path) != "scene.py" {
		t.Fatalf("expected default name scene.py, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if string(data) != "from manim import *\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestListFiles(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), true, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ws, err := mgr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()

	sub := filepath.Join(ws.Dir, "media", "videos")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "out.mp4"), []byte("v"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.Dir, "scene.py"), []byte("s"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files := ws.ListFiles()
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	found := map[string]bool{}
	for _, f := range files {
		found[f] = true
	}
	if !found["scene.py"] || !found[filepath.Join("media", "videos", "out.mp4")] {
		t.Fatalf("unexpected listing %v", files)
	}
}
