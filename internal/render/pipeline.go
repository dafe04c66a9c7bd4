// Package render orchestrates a complete render: source preparation and
// validation, workspace setup, supervising the renderer, locating the
// produced video, and classifying whatever went wrong. The workspace is
// removed on every path out.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sceneforge/internal/config"
	"sceneforge/internal/logging"
	"sceneforge/internal/sceneinspect"
	"sceneforge/internal/services/manim"
	"sceneforge/internal/workspace"
)

// Renderer runs the external renderer. Satisfied by *manim.CLI.
type Renderer interface {
	Render(ctx context.Context, spec manim.RenderSpec, onProgress manim.ProgressFunc) (string, error)
}

// Request describes one render to perform.
type Request struct {
	ID     string
	Source string
	// Scene selects the class to render. Empty picks the first detected
	// scene class.
	Scene   string
	Quality string
	// Timeout bounds the render wall clock. Zero uses the configured
	// render.timeout_seconds.
	Timeout time.Duration
}

// Result is the final state of a render.
type Result struct {
	Outcome         Outcome
	Scene           string
	Quality         string
	Log             string
	ArtifactPath    string
	ArtifactSize    int64
	TotalAnimations int
	Duration        time.Duration
	ErrorMessage    string
	WorkspaceFiles  []string
}

// Pipeline wires the render stages together.
type Pipeline struct {
	cfg        *config.Config
	workspaces *workspace.Manager
	renderer   Renderer
	logger     *slog.Logger
}

// NewPipeline builds a pipeline over the given workspace manager and
// renderer.
func NewPipeline(cfg *config.Config, workspaces *workspace.Manager, renderer Renderer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		workspaces: workspaces,
		renderer:   renderer,
		logger:     logging.NewComponentLogger(logger, "render"),
	}
}

// Prepared holds the validated inputs for a render run.
type Prepared struct {
	Source          []byte
	Scene           string
	Quality         manim.Quality
	TotalAnimations int
	Timeout         time.Duration
}

// Prepare validates the request without touching the filesystem: the manim
// import is patched in, syntax is checked, the scene class resolved, and the
// animation count estimated. The returned error for bad source is a
// *sceneinspect.SyntaxError.
func (p *Pipeline) Prepare(req Request) (*Prepared, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, errors.New("source is empty")
	}

	// Syntax is checked before the import is patched in so reported line
	// numbers match what the user submitted.
	raw := []byte(req.Source)
	if err := sceneinspect.CheckSyntax(raw); err != nil {
		return nil, err
	}
	source := sceneinspect.EnsureImport(raw)

	scene := strings.TrimSpace(req.Scene)
	classes := sceneinspect.SceneClasses(source)
	if scene == "" {
		if len(classes) == 0 {
			return nil, errors.New("no scene class found in source")
		}
		scene = classes[0]
	} else if !strings.Contains(req.Source, scene) {
		return nil, fmt.Errorf("scene class %q not found in source", scene)
	}

	qualityName := req.Quality
	if qualityName == "" {
		qualityName = p.cfg.Render.DefaultQuality
	}
	quality, ok := manim.QualityByName(qualityName)
	if !ok {
		return nil, fmt.Errorf("unknown quality %q", qualityName)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = time.Duration(p.cfg.Render.TimeoutSeconds) * time.Second
	}

	return &Prepared{
		Source:          source,
		Scene:           scene,
		Quality:         quality,
		TotalAnimations: sceneinspect.CountAnimations(source),
		Timeout:         timeout,
	}, nil
}

// Render runs the request to completion and always returns a Result; errors
// are folded into the outcome. The session's context carries cancellation
// and onProgress receives monotonic updates as the renderer logs.
func (p *Pipeline) Render(session *Session, req Request) Result {
	start := time.Now()

	prep, err := p.Prepare(req)
	if err != nil {
		outcome := OutcomeFailed
		var synErr *sceneinspect.SyntaxError
		if errors.As(err, &synErr) {
			outcome = OutcomeSyntaxInvalid
		}
		return Result{
			Outcome:      outcome,
			Scene:        req.Scene,
			Quality:      req.Quality,
			Duration:     time.Since(start),
			ErrorMessage: err.Error(),
		}
	}

	res := p.renderPrepared(session, req.ID, prep)
	res.Duration = time.Since(start)

	p.logger.Info("render finished",
		slog.String(logging.FieldRenderID, req.ID),
		slog.String(logging.FieldScene, res.Scene),
		slog.String("outcome", string(res.Outcome)),
		slog.Duration("duration", res.Duration))

	return res
}

func (p *Pipeline) renderPrepared(session *Session, id string, prep *Prepared) Result {
	res := Result{
		Scene:           prep.Scene,
		Quality:         prep.Quality.Name,
		TotalAnimations: prep.TotalAnimations,
	}

	ws, err := p.workspaces.Acquire()
	if err != nil {
		res.Outcome = OutcomeFailed
		res.ErrorMessage = fmt.Sprintf("acquire workspace: %v", err)
		return res
	}
	defer ws.Release()

	scriptPath, err := ws.WriteScript("scene.py", prep.Source)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.ErrorMessage = err.Error()
		return res
	}

	ctx, cancel := context.WithTimeoutCause(session.Context(), prep.Timeout, ErrTimedOut)
	defer cancel()

	spec := manim.RenderSpec{
		ScriptPath:      scriptPath,
		SceneName:       prep.Scene,
		MediaDir:        ws.Dir,
		WorkDir:         ws.Dir,
		Quality:         prep.Quality,
		TotalAnimations: prep.TotalAnimations,
	}

	log, renderErr := p.renderer.Render(ctx, spec, session.Publish)
	res.Log = log

	switch {
	case renderErr == nil:
		p.collectArtifact(ws, id, &res)
	case errors.Is(renderErr, ErrTimedOut):
		res.Outcome = OutcomeTimedOut
		res.ErrorMessage = fmt.Sprintf("render timed out after %s", prep.Timeout)
	case errors.Is(renderErr, ErrStopped), errors.Is(renderErr, context.Canceled):
		res.Outcome = OutcomeCancelled
		res.ErrorMessage = ErrStopped.Error()
	default:
		var exitErr *manim.ExitError
		if errors.As(renderErr, &exitErr) {
			res.Outcome = OutcomeFailed
			res.ErrorMessage = exitErr.Error()
		} else {
			res.Outcome = OutcomeFailed
			res.ErrorMessage = fmt.Sprintf("unexpected error: %v", renderErr)
		}
	}

	return res
}

// collectArtifact finds the rendered video and copies it to the configured
// output directory before the workspace is torn down. A clean exit without a
// video is its own outcome, with the workspace contents attached for
// diagnosis.
func (p *Pipeline) collectArtifact(ws *workspace.Workspace, id string, res *Result) {
	source, ok := manim.LocateArtifact(ws.Dir, manim.DefaultOutputName)
	if !ok {
		res.Outcome = OutcomeMissingArtifact
		res.ErrorMessage = "render completed but no video file was produced"
		res.WorkspaceFiles = ws.ListFiles()

		var listing strings.Builder
		listing.WriteString(res.Log)
		listing.WriteString("\nFiles in workspace:\n")
		for _, file := range res.WorkspaceFiles {
			listing.WriteString("  " + file + "\n")
		}
		res.Log = listing.String()
		return
	}

	dest, size, err := p.copyArtifact(source, id, res.Scene)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.ErrorMessage = fmt.Sprintf("save artifact: %v", err)
		return
	}

	res.Outcome = OutcomeCompleted
	res.ArtifactPath = dest
	res.ArtifactSize = size
}

func (p *Pipeline) copyArtifact(source, id, scene string) (string, int64, error) {
	if err := os.MkdirAll(p.cfg.Render.OutputDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create output directory: %w", err)
	}

	name := scene
	if id != "" {
		name = scene + "-" + id
	}
	dest := filepath.Join(p.cfg.Render.OutputDir, name+".mp4")

	in, err := os.Open(source)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", 0, err
	}

	size, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return "", 0, err
	}
	if err := out.Close(); err != nil {
		return "", 0, err
	}
	return dest, size, nil
}
