// Package daemon runs the long-lived render service: it owns the single
// instance lock, the history store, the render pipeline, and the HTTP API.
// Renders are serialized; a second submission while one is active is
// rejected rather than queued behind a shared workspace.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sceneforge/internal/config"
	"sceneforge/internal/deps"
	"sceneforge/internal/logging"
	"sceneforge/internal/queue"
	"sceneforge/internal/render"
	"sceneforge/internal/services/manim"
	"sceneforge/internal/workspace"
)

// ErrRenderBusy is returned when a render is already in flight.
var ErrRenderBusy = errors.New("a render is already in progress")

// ErrAlreadyRunning is returned when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("daemon already running")

// Option configures the daemon.
type Option func(*Daemon)

// WithRenderer overrides the renderer, used by tests.
func WithRenderer(r render.Renderer) Option {
	return func(d *Daemon) {
		d.renderer = r
	}
}

// Daemon coordinates renders and serves the API.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	renderer render.Renderer

	store      *queue.Store
	lock       *flock.Flock
	workspaces *workspace.Manager
	pipeline   *render.Pipeline
	api        *apiServer

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	active   *render.Session
	sessions map[string]*render.Session
}

// New builds a daemon. Start must be called before it serves anything.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		sessions: make(map[string]*render.Session),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.renderer == nil {
		d.renderer = manim.NewCLI(
			manim.WithBinary(cfg.Render.ManimBinary),
			manim.WithLogger(logger),
		)
	}

	manager, err := workspace.NewManager(cfg.Workspace.Root, cfg.Workspace.Unique, logger)
	if err != nil {
		return nil, err
	}
	d.workspaces = manager
	d.pipeline = render.NewPipeline(cfg, manager, d.renderer, logger)

	return d, nil
}

// LockFilePath returns the single-instance lock location.
func (d *Daemon) LockFilePath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "sceneforge.lock")
}

// Start acquires the instance lock, opens the history store, and brings the
// API up. It returns once the daemon is serving.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(d.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	d.lock = lock

	store, err := queue.Open(d.cfg)
	if err != nil {
		_ = lock.Unlock()
		return err
	}
	d.store = store

	d.ctx, d.cancel = context.WithCancel(ctx)

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.Stop()
		return err
	}
	d.api = server
	if err := server.start(d.ctx); err != nil {
		d.Stop()
		return err
	}

	d.logger.Info("daemon started",
		slog.Int("pid", os.Getpid()),
		slog.String("history_db", store.Path()))
	return nil
}

// Stop shuts the daemon down: the active render is cancelled and awaited,
// the API stops, and the lock is released.
func (d *Daemon) Stop() {
	d.mu.Lock()
	active := d.active
	d.mu.Unlock()

	if active != nil {
		active.Stop()
		select {
		case <-active.Done():
		case <-time.After(10 * time.Second):
			d.logger.Warn("active render did not finish during shutdown")
		}
	}

	if d.cancel != nil {
		d.cancel()
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if d.store != nil {
		_ = d.store.Close()
		d.store = nil
	}
	if d.lock != nil {
		_ = d.lock.Unlock()
		d.lock = nil
	}
	d.logger.Info("daemon stopped")
}

// APIAddr returns the listening API address, empty before Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.Addr()
}

// StatusSnapshot summarizes daemon health.
type StatusSnapshot struct {
	Running       bool
	PID           int
	HistoryDBPath string
	LockFilePath  string
	Active        *render.Session
	Dependencies  []deps.Status
}

// Status reports current daemon state and dependency availability.
func (d *Daemon) Status(_ context.Context) StatusSnapshot {
	d.mu.Lock()
	active := d.active
	d.mu.Unlock()

	statuses := deps.CheckBinaries(deps.Requirements(d.cfg))
	statuses = append(statuses, deps.CheckDiskSpace(d.workspaces.Root()))

	snapshot := StatusSnapshot{
		Running:      true,
		PID:          os.Getpid(),
		LockFilePath: d.LockFilePath(),
		Active:       active,
		Dependencies: statuses,
	}
	if d.store != nil {
		snapshot.HistoryDBPath = d.store.Path()
	}
	return snapshot
}

// StartRender validates the request, records it, and launches the render in
// the background. Returns ErrRenderBusy while another render runs; request
// validation errors come back as *sceneinspect.SyntaxError or plain errors.
func (d *Daemon) StartRender(ctx context.Context, req render.Request) (*render.Session, error) {
	prep, err := d.pipeline.Prepare(req)
	if err != nil {
		return nil, err
	}

	req.ID = newRenderID()
	req.Scene = prep.Scene
	req.Quality = prep.Quality.Name

	d.mu.Lock()
	if d.active != nil {
		d.mu.Unlock()
		return nil, ErrRenderBusy
	}
	session := render.NewSession(d.ctx, req.ID, prep.Scene, prep.Quality.Name)
	d.active = session
	d.sessions[req.ID] = session
	d.mu.Unlock()

	if _, err := d.store.Create(ctx, req.ID, prep.Scene, prep.Quality.Name); err != nil {
		d.clearActive(session)
		return nil, err
	}

	go d.runRender(session, req)
	return session, nil
}

func (d *Daemon) runRender(session *render.Session, req render.Request) {
	defer d.clearActive(session)

	ctx := context.Background()
	if err := d.store.MarkRendering(ctx, req.ID); err != nil {
		d.logger.Error("mark rendering", logging.Error(err))
	}

	go d.logProgress(session)

	d.logger.Info("render started",
		slog.String(logging.FieldRenderID, req.ID),
		slog.String(logging.FieldScene, req.Scene),
		slog.String("quality", req.Quality))

	result := d.pipeline.Render(session, req)

	if err := d.store.Finish(ctx, req.ID, result); err != nil {
		d.logger.Error("store render result", logging.Error(err))
	}
	session.Finish(result)
}

// logProgress samples progress updates into the log so a render leaves a
// trace without flooding the file.
func (d *Daemon) logProgress(session *render.Session) {
	ch, unsubscribe := session.Subscribe()
	defer unsubscribe()

	sampler := logging.NewProgressSampler(2*time.Second, 5)
	for {
		select {
		case upd := <-ch:
			if !sampler.ShouldLog(float64(upd.Percent)) {
				continue
			}
			d.logger.Info("render progress",
				slog.String(logging.FieldRenderID, session.ID()),
				slog.Int(logging.FieldPercent, upd.Percent),
				slog.String(logging.FieldStage, string(upd.Stage)),
				slog.String("status", upd.Status))
		case <-session.Done():
			return
		}
	}
}

// clearActive releases the single-flight slot and drops the session from the
// lookup map. Finished renders are served from the history store, so keeping
// sessions around would only pin their logs in memory.
func (d *Daemon) clearActive(session *render.Session) {
	d.mu.Lock()
	if d.active == session {
		d.active = nil
	}
	delete(d.sessions, session.ID())
	d.mu.Unlock()
}

// Session looks up a tracked render session by id.
func (d *Daemon) Session(id string) (*render.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[id]
	return session, ok
}

// StopRender cancels the render with the given id.
func (d *Daemon) StopRender(id string) error {
	session, ok := d.Session(id)
	if !ok {
		return queue.ErrNotFound
	}
	session.Stop()
	return nil
}

func newRenderID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:4])
}
