package manim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"sceneforge/internal/logging"
	"sceneforge/internal/progress"
)

var commandContext = exec.CommandContext

const logSeparator = "--------------------------------------------------"

// DefaultOutputName is the file name passed to manim's -o flag.
const DefaultOutputName = "output.mp4"

// RenderSpec describes one render invocation.
type RenderSpec struct {
	ScriptPath string
	SceneName  string
	MediaDir   string
	WorkDir    string
	OutputName string
	Quality    Quality
	// TotalAnimations seeds progress interpolation. Values below 1 are
	// treated as 1.
	TotalAnimations int
}

// ProgressFunc receives progress updates during a render. Updates are
// monotonic; a parsed percent lower than an earlier one is dropped.
type ProgressFunc func(progress.Update)

// ExitError reports a renderer process that finished with a nonzero code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("manim exited with code %d", e.Code)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithLogger attaches a logger for per-render diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "manim")
		}
	}
}

// CLI wraps the manim command-line renderer.
type CLI struct {
	binary string
	logger *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "manim", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Render runs manim for the given spec, streaming progress as output lines
// arrive. The returned log always contains everything the process printed
// plus a header and the exit code, including when rendering fails.
//
// The context governs the process lifetime: cancellation or deadline expiry
// kills the renderer and Render returns the context cause. A clean exit
// forces a final 100 percent update.
func (c *CLI) Render(ctx context.Context, spec RenderSpec, onProgress ProgressFunc) (string, error) {
	if spec.ScriptPath == "" {
		return "", errors.New("script path required")
	}
	if spec.SceneName == "" {
		return "", errors.New("scene name required")
	}
	if spec.MediaDir == "" {
		return "", errors.New("media directory required")
	}
	outputName := spec.OutputName
	if outputName == "" {
		outputName = DefaultOutputName
	}

	args := []string{
		spec.ScriptPath,
		spec.SceneName,
		"-o", outputName,
		"--media_dir", spec.MediaDir,
		spec.Quality.Flag,
		"--disable_caching",
		"-v", "INFO",
	}

	var log strings.Builder
	log.WriteString("Command: " + c.binary + " " + strings.Join(args, " ") + "\n")
	log.WriteString("Working directory: " + spec.WorkDir + "\n")
	log.WriteString(logSeparator + "\n")

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Dir = spec.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return log.String(), fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return log.String(), fmt.Errorf("start manim: %w", err)
	}

	c.logger.Debug("renderer started",
		slog.String("scene", spec.SceneName),
		slog.String("quality", spec.Quality.Name))

	tracker := progress.NewTracker(spec.TotalAnimations)
	lastPercent := -1

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		log.WriteString(line + "\n")

		upd := tracker.ParseLine(line)
		if onProgress == nil {
			continue
		}
		if upd.Percent > lastPercent {
			lastPercent = upd.Percent
			onProgress(upd)
		} else if upd.Status != "" {
			// Status may change even when the percent holds still.
			onProgress(progress.Update{Percent: lastPercent, Status: upd.Status, Stage: upd.Stage})
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()

	if cause := context.Cause(ctx); cause != nil {
		log.WriteString("\n[render stopped: " + cause.Error() + "]\n")
		return log.String(), cause
	}
	if scanErr != nil {
		return log.String(), fmt.Errorf("read manim output: %w", scanErr)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return log.String(), fmt.Errorf("manim: %w", waitErr)
		}
	}

	log.WriteString(logSeparator + "\n")
	log.WriteString(fmt.Sprintf("Process exited with code: %d\n", exitCode))

	if exitCode != 0 {
		return log.String(), &ExitError{Code: exitCode}
	}

	if onProgress != nil {
		onProgress(progress.Update{Percent: 100, Status: "Render complete!", Stage: progress.StageDone})
	}
	return log.String(), nil
}
