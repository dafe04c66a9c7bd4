package progress

import (
	"strings"
	"testing"
)

func TestInitialStage(t *testing.T) {
	tr := NewTracker(5)
	upd := tr.ParseLine("Manim Community v0.18.0")
	if upd.Stage != StageInit {
		t.Fatalf("expected init stage, got %s", upd.Stage)
	}
	if upd.Percent != 0 {
		t.Fatalf("expected 0%%, got %d", upd.Percent)
	}
	if upd.Status != "Processing..." {
		t.Fatalf("expected placeholder status, got %q", upd.Status)
	}
}

func TestSceneLineEntersParsing(t *testing.T) {
	tr := NewTracker(5)
	upd := tr.ParseLine("Loading scene DemoScene")
	if upd.Stage != StageParsing {
		t.Fatalf("expected parsing, got %s", upd.Stage)
	}
	if upd.Percent != 5 {
		t.Fatalf("expected 5%%, got %d", upd.Percent)
	}
	if upd.Status != "Parsing scene..." {
		t.Fatalf("unexpected status %q", upd.Status)
	}
}

func TestLatexStage(t *testing.T) {
	tr := NewTracker(5)
	upd := tr.ParseLine("Writing DemoScene.tex to disk")
	if upd.Stage != StageLatex {
		t.Fatalf("expected latex, got %s", upd.Stage)
	}
	if upd.Percent != 10 {
		t.Fatalf("expected 10%%, got %d", upd.Percent)
	}
	if upd.Status != "Compiling LaTeX..." {
		t.Fatalf("unexpected status %q", upd.Status)
	}
}

func TestAnimationLineInterpolates(t *testing.T) {
	tr := NewTracker(5)
	upd := tr.ParseLine("Animation 3: FadeIn(Circle)")
	if upd.Stage != StageRendering {
		t.Fatalf("expected rendering, got %s", upd.Stage)
	}
	if !strings.Contains(upd.Status, "3") || !strings.Contains(upd.Status, "5") {
		t.Fatalf("status should carry animation counts, got %q", upd.Status)
	}
	if !strings.Contains(upd.Status, "FadeIn") {
		t.Fatalf("status should carry animation name, got %q", upd.Status)
	}
	// Two finished animations out of five: 20 + 65 * 2/5 = 46.
	if upd.Percent != 46 {
		t.Fatalf("expected 46%%, got %d", upd.Percent)
	}
	if upd.Percent < 20 || upd.Percent >= 85 {
		t.Fatalf("percent outside rendering band: %d", upd.Percent)
	}
}

func TestPercentWithinAnimation(t *testing.T) {
	tr := NewTracker(2)
	tr.ParseLine("Animation 1: Create(Square)")
	upd := tr.ParseLine(" 50% done")
	// 20 + 65 * (0/2 + 0.5/2) = 36.
	if upd.Percent != 36 {
		t.Fatalf("expected 36%%, got %d", upd.Percent)
	}
}

func TestPercentIgnoredOutsideRendering(t *testing.T) {
	tr := NewTracker(2)
	upd := tr.ParseLine("downloaded 75% of assets")
	if upd.Stage == StageRendering {
		t.Fatalf("percent line should not enter rendering")
	}
	if upd.Percent != 0 {
		t.Fatalf("expected 0%%, got %d", upd.Percent)
	}
}

func TestCombiningStage(t *testing.T) {
	tr := NewTracker(3)
	upd := tr.ParseLine("Combining to Movie file")
	if upd.Stage != StageCombining || upd.Percent != 85 {
		t.Fatalf("expected combining at 85%%, got %s %d", upd.Stage, upd.Percent)
	}
}

func TestWritingStage(t *testing.T) {
	tr := NewTracker(3)
	upd := tr.ParseLine("Writing final output to disk")
	if upd.Stage != StageWriting || upd.Percent != 95 {
		t.Fatalf("expected writing at 95%%, got %s %d", upd.Stage, upd.Percent)
	}
}

func TestTexWritingStaysLatex(t *testing.T) {
	tr := NewTracker(3)
	upd := tr.ParseLine("Writing formula.tex")
	if upd.Stage != StageLatex {
		t.Fatalf("tex writing should map to latex, got %s", upd.Stage)
	}
}

func TestFileReadyCompletes(t *testing.T) {
	tr := NewTracker(3)
	upd := tr.ParseLine("File ready at /tmp/media/videos/scene/720p30/output.mp4")
	if upd.Stage != StageDone {
		t.Fatalf("expected done, got %s", upd.Stage)
	}
	if upd.Percent != 100 {
		t.Fatalf("expected 100%%, got %d", upd.Percent)
	}
	if upd.Status != "Complete!" {
		t.Fatalf("unexpected status %q", upd.Status)
	}
}

func TestErrorLineTruncates(t *testing.T) {
	tr := NewTracker(3)
	long := "Error: " + strings.Repeat("x", 100)
	upd := tr.ParseLine(long)
	if !strings.HasPrefix(upd.Status, "Error: ") {
		t.Fatalf("expected error status, got %q", upd.Status)
	}
	if !strings.HasSuffix(upd.Status, "...") {
		t.Fatalf("expected ellipsis, got %q", upd.Status)
	}
	if len(upd.Status) > 60 {
		t.Fatalf("status too long: %d chars", len(upd.Status))
	}
}

func TestErrorLineKeepsProgress(t *testing.T) {
	tr := NewTracker(5)
	tr.ParseLine("Animation 3: FadeIn(Circle)")
	upd := tr.ParseLine("Traceback (most recent call last):")
	if upd.Percent != 46 {
		t.Fatalf("error line should not move progress, got %d", upd.Percent)
	}
}

func TestEmptyLineRepeatsState(t *testing.T) {
	tr := NewTracker(5)
	tr.ParseLine("Animation 2: Write(Tex)")
	before := tr.ParseLine("")
	after := tr.ParseLine("   ")
	if before.Percent != after.Percent || before.Status != after.Status {
		t.Fatalf("blank lines should repeat state: %+v vs %+v", before, after)
	}
}

func TestTotalAnimationsFloor(t *testing.T) {
	tr := NewTracker(0)
	upd := tr.ParseLine("Animation 1: Create(Dot)")
	if !strings.Contains(upd.Status, "(1/1)") {
		t.Fatalf("expected floor of one animation, got %q", upd.Status)
	}
}

func TestFullRenderSequence(t *testing.T) {
	tr := NewTracker(2)
	lines := []string{
		"Manim Community v0.18.0",
		"Loading scene DemoScene",
		"Animation 1: Create(Circle)",
		" 100%",
		"Animation 2: FadeOut(Circle)",
		" 100%",
		"Combining to Movie file",
		"File ready at output.mp4",
	}
	last := -1
	for _, line := range lines {
		upd := tr.ParseLine(line)
		if upd.Percent < last {
			t.Fatalf("progress regressed at %q: %d < %d", line, upd.Percent, last)
		}
		last = upd.Percent
	}
	if last != 100 {
		t.Fatalf("expected to finish at 100, got %d", last)
	}
}
