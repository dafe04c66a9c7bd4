// Package workspace manages per-render working directories. Each render gets
// its own directory so concurrent renders never collide, and the directory is
// removed when the render finishes regardless of outcome.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"sceneforge/internal/logging"
)

const fixedDirName = "scene"

// Manager allocates and releases render workspaces under a root directory.
type Manager struct {
	root   string
	unique bool
	logger *slog.Logger
}

// Workspace is a single allocated working directory.
type Workspace struct {
	// Dir is the absolute path of the directory. The caller owns its
	// contents until Release.
	Dir     string
	manager *Manager
}

// NewManager creates a manager rooted at root. When unique is true every
// Acquire call returns a fresh uniquely named directory; when false a single
// shared directory is reused, which is only safe for serialized renders.
func NewManager(root string, unique bool, logger *slog.Logger) (*Manager, error) {
	if root == "" {
		root = os.TempDir()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{
		root:   abs,
		unique: unique,
		logger: logging.NewComponentLogger(logger, "workspace"),
	}, nil
}

// Root returns the directory under which workspaces are created.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a working directory and returns it. In unique mode the
// name embeds a random suffix; in shared mode the same directory is emptied
// and reused.
func (m *Manager) Acquire() (*Workspace, error) {
	dir := filepath.Join(m.root, fixedDirName)
	if m.unique {
		dir = filepath.Join(m.root, "sceneforge-"+shortID())
	} else {
		// Shared mode: clear leftovers from an earlier run.
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("clear shared workspace: %w", err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	m.logger.Debug("workspace acquired", slog.String("dir", dir))
	return &Workspace{Dir: dir, manager: m}, nil
}

// WriteScript writes the scene source into the workspace and returns its
// absolute path.
func (w *Workspace) WriteScript(name string, source []byte) (string, error) {
	if name == "" {
		name = "scene.py"
	}
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, source, 0o644); err != nil {
		return "", fmt.Errorf("write scene script: %w", err)
	}
	return path, nil
}

// ListFiles returns the relative paths of every regular file in the
// workspace, sorted by filepath.WalkDir order. Used to diagnose a missing
// render artifact.
func (w *Workspace) ListFiles() []string {
	var files []string
	_ = filepath.WalkDir(w.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.Dir, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, rel)
		return nil
	})
	return files
}

// Release removes the workspace directory. Errors are logged and swallowed;
// cleanup failure must never mask the render outcome.
func (w *Workspace) Release() {
	if w == nil || w.Dir == "" {
		return
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		w.manager.logger.Warn("workspace cleanup failed",
			slog.String("dir", w.Dir),
			logging.Error(err))
		return
	}
	w.manager.logger.Debug("workspace released", slog.String("dir", w.Dir))
}

func shortID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:4])
}
