// Package deps reports on the external tools a render needs before any
// render is attempted.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"sceneforge/internal/config"
)

// Requirement defines an external dependency Sceneforge relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the dependency set for the given configuration.
func Requirements(cfg *config.Config) []Requirement {
	binary := "manim"
	if cfg != nil && cfg.Render.ManimBinary != "" {
		binary = cfg.Render.ManimBinary
	}
	return []Requirement{
		{
			Name:        "Manim",
			Command:     binary,
			Description: "animation renderer",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "video segment combiner used by manim",
		},
		{
			Name:        "LaTeX",
			Command:     "latex",
			Description: "formula compiler for Tex and MathTex objects",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
