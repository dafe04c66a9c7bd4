// Package progress turns raw manim log output into a percent and a human
// readable status. The renderer gives no machine-readable progress, so the
// tracker infers the current stage from well-known log phrases and
// interpolates within the rendering stage using the estimated animation
// count.
package progress

import (
	"fmt"
	"regexp"
	"strings"
)

// Stage identifies where the render currently is.
type Stage string

const (
	StageInit      Stage = "init"
	StageParsing   Stage = "parsing"
	StageLatex     Stage = "latex"
	StageRendering Stage = "rendering"
	StageCombining Stage = "combining"
	StageWriting   Stage = "writing"
	StageDone      Stage = "done"
)

type stageBand struct {
	start int
	end   int
	label string
}

var stageBands = map[Stage]stageBand{
	StageInit:      {0, 5, "Initializing..."},
	StageParsing:   {5, 10, "Parsing scene..."},
	StageLatex:     {10, 20, "Compiling LaTeX..."},
	StageRendering: {20, 85, "Rendering animations..."},
	StageCombining: {85, 95, "Combining video segments..."},
	StageWriting:   {95, 99, "Writing final video..."},
	StageDone:      {100, 100, "Complete!"},
}

var (
	animationPattern     = regexp.MustCompile(`animation\s+(\d+)`)
	animationNamePattern = regexp.MustCompile(`(?i)animation\s+\d+\s*:\s*(\w+)`)
	percentPattern       = regexp.MustCompile(`(\d+)%`)
)

// Update is the result of parsing one log line.
type Update struct {
	Percent int
	Status  string
	Stage   Stage
}

// Tracker is a stateful line parser for one render. Not safe for concurrent
// use; the supervisor feeds it from a single goroutine.
type Tracker struct {
	totalAnimations  int
	currentAnimation int
	animationPercent int
	stage            Stage
	lastStatus       string
}

// NewTracker builds a tracker for a render expected to produce
// totalAnimations animation steps. Values below 1 are raised to 1.
func NewTracker(totalAnimations int) *Tracker {
	if totalAnimations < 1 {
		totalAnimations = 1
	}
	return &Tracker{
		totalAnimations: totalAnimations,
		stage:           StageInit,
	}
}

// Stage returns the current stage.
func (t *Tracker) Stage() Stage {
	return t.stage
}

// ParseLine consumes one line of renderer output and returns the resulting
// progress. Percent values are not guaranteed monotonic; the caller filters.
func (t *Tracker) ParseLine(line string) Update {
	lower := strings.ToLower(strings.TrimSpace(line))

	if lower == "" {
		return t.update(t.percent(), t.lastStatus)
	}

	if strings.Contains(lower, "error") || strings.Contains(lower, "traceback") {
		return t.update(t.percent(), "Error: "+truncate(line, 50)+"...")
	}

	if strings.Contains(lower, "tex") && (strings.Contains(lower, "writing") || strings.Contains(lower, "compiling")) {
		t.stage = StageLatex
		t.lastStatus = stageBands[StageLatex].label
		return t.update(t.percent(), t.lastStatus)
	}

	if match := animationPattern.FindStringSubmatch(lower); match != nil {
		t.stage = StageRendering
		t.currentAnimation = atoi(match[1])

		name := "animation"
		if nameMatch := animationNamePattern.FindStringSubmatch(line); nameMatch != nil {
			name = nameMatch[1]
		}
		t.lastStatus = fmt.Sprintf("Rendering %s (%d/%d)", name, t.currentAnimation, t.totalAnimations)
	}

	if match := percentPattern.FindStringSubmatch(line); match != nil && t.stage == StageRendering {
		t.animationPercent = atoi(match[1])
		return t.update(t.percent(), t.lastStatus)
	}

	if strings.Contains(lower, "partial movie") || strings.Contains(lower, "combining") || strings.Contains(lower, "concatenat") {
		t.stage = StageCombining
		t.lastStatus = stageBands[StageCombining].label
		return t.update(t.percent(), t.lastStatus)
	}

	if (strings.Contains(lower, "writing") || strings.Contains(lower, "saved")) && !strings.Contains(lower, "tex") {
		t.stage = StageWriting
		t.lastStatus = stageBands[StageWriting].label
		return t.update(t.percent(), t.lastStatus)
	}

	if strings.Contains(lower, "file ready") || strings.Contains(lower, "movie ready") {
		t.stage = StageDone
		t.lastStatus = stageBands[StageDone].label
		return t.update(100, t.lastStatus)
	}

	if strings.Contains(lower, "scene") && t.stage == StageInit {
		t.stage = StageParsing
		t.lastStatus = stageBands[StageParsing].label
	}

	status := t.lastStatus
	if status == "" {
		status = "Processing..."
	}
	return t.update(t.percent(), status)
}

// percent computes the overall progress for the current state. Inside the
// rendering stage the band is interpolated across finished animations plus
// the fraction of the one in flight; everywhere else the band start stands
// for the whole stage.
func (t *Tracker) percent() int {
	band, ok := stageBands[t.stage]
	if !ok {
		return 0
	}

	if t.stage == StageRendering && t.totalAnimations > 0 {
		renderRange := float64(band.end - band.start)
		completed := float64(t.currentAnimation-1) / float64(t.totalAnimations)
		current := (float64(t.animationPercent) / 100) / float64(t.totalAnimations)
		return band.start + int(renderRange*(completed+current))
	}

	return band.start
}

func (t *Tracker) update(percent int, status string) Update {
	return Update{Percent: percent, Status: status, Stage: t.stage}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
