package manim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"sceneforge/internal/progress"
)

func stubCommand(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "MANIM_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func testSpec(t *testing.T) RenderSpec {
	t.Helper()
	quality, ok := QualityByName("medium")
	if !ok {
		t.Fatal("medium quality missing")
	}
	dir := t.TempDir()
	return RenderSpec{
		ScriptPath:      dir + "/scene.py",
		SceneName:       "DemoScene",
		MediaDir:        dir,
		WorkDir:         dir,
		Quality:         quality,
		TotalAnimations: 2,
	}
}

func TestNewCLIWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/manim"))
	if cli.binary != "/opt/manim" {
		t.Fatalf("expected binary override, got %q", cli.binary)
	}
}

func TestRenderRequiresScript(t *testing.T) {
	cli := NewCLI()
	spec := testSpec(t)
	spec.ScriptPath = ""
	if _, err := cli.Render(context.Background(), spec, nil); err == nil {
		t.Fatal("expected error for missing script path")
	}
}

func TestRenderRequiresScene(t *testing.T) {
	cli := NewCLI()
	spec := testSpec(t)
	spec.SceneName = ""
	if _, err := cli.Render(context.Background(), spec, nil); err == nil {
		t.Fatal("expected error for missing scene name")
	}
}

func TestRenderCommandArguments(t *testing.T) {
	var args []string
	stubCommand(t, "success", &args)

	cli := NewCLI()
	spec := testSpec(t)
	if _, err := cli.Render(context.Background(), spec, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []string{
		spec.ScriptPath,
		"DemoScene",
		"-o", "output.mp4",
		"--media_dir", spec.MediaDir,
		"-qm",
		"--disable_caching",
		"-v", "INFO",
	}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %v", len(want), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: expected %q, got %q (all: %v)", i, want[i], args[i], args)
		}
	}
}

func TestRenderStreamsMonotonicProgress(t *testing.T) {
	stubCommand(t, "success", nil)

	cli := NewCLI()
	var percents []int
	log, err := cli.Render(context.Background(), testSpec(t), func(upd progress.Update) {
		percents = append(percents, upd.Percent)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("expected progress updates")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed: %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("expected forced final 100, got %v", percents)
	}
	if !strings.Contains(log, "Process exited with code: 0") {
		t.Fatalf("expected exit code in log, got %q", log)
	}
	if !strings.Contains(log, "Animation 1:") {
		t.Fatalf("expected renderer output captured, got %q", log)
	}
}

func TestRenderNonZeroExit(t *testing.T) {
	stubCommand(t, "fail", nil)

	cli := NewCLI()
	log, err := cli.Render(context.Background(), testSpec(t), nil)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 2 {
		t.Fatalf("expected exit code 2, got %d", exitErr.Code)
	}
	if !strings.Contains(log, "Process exited with code: 2") {
		t.Fatalf("expected exit code in log, got %q", log)
	}
}

func TestRenderCancelledReturnsCause(t *testing.T) {
	stubCommand(t, "hang", nil)

	stopped := errors.New("stopped by user")
	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel(stopped)
	}()
	t.Cleanup(func() { cancel(nil) })

	cli := NewCLI()
	log, err := cli.Render(ctx, testSpec(t), nil)
	if !errors.Is(err, stopped) {
		t.Fatalf("expected cancellation cause, got %v", err)
	}
	if !strings.Contains(log, "[render stopped") {
		t.Fatalf("expected stop marker in log, got %q", log)
	}
}

func TestRenderLogHeader(t *testing.T) {
	stubCommand(t, "success", nil)

	cli := NewCLI(WithBinary("manim"))
	spec := testSpec(t)
	log, err := cli.Render(context.Background(), spec, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(log, "Command: manim "+spec.ScriptPath) {
		t.Fatalf("expected command header, got %q", log)
	}
	if !strings.Contains(log, "Working directory: "+spec.WorkDir) {
		t.Fatalf("expected workdir header, got %q", log)
	}
}

// TestHelperProcess is the subprocess body for stubbed renderer runs.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	switch os.Getenv("MANIM_HELPER_MODE") {
	case "success":
		fmt.Println("Manim Community v0.18.0")
		fmt.Println("Loading scene DemoScene")
		fmt.Println("Animation 1: Create(Circle)")
		fmt.Println(" 100%")
		fmt.Println("Animation 2: FadeOut(Circle)")
		fmt.Println(" 100%")
		fmt.Println("Combining to Movie file")
		fmt.Println("File ready at output.mp4")
	case "fail":
		fmt.Println("Traceback (most recent call last):")
		fmt.Println("NameError: name 'Circel' is not defined")
		os.Exit(2)
	case "hang":
		fmt.Println("Manim Community v0.18.0")
		time.Sleep(30 * time.Second)
	}
}
