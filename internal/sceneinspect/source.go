package sceneinspect

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Names whose presence suggests the source uses manim and therefore needs
// the wildcard import.
var manimIndicators = map[string]struct{}{
	"Scene": {}, "ThreeDScene": {}, "MovingCameraScene": {},
	"Circle": {}, "Square": {}, "Triangle": {}, "Rectangle": {},
	"Tex": {}, "MathTex": {}, "Text": {},
	"Create": {}, "Write": {}, "FadeIn": {}, "FadeOut": {},
	"Transform": {}, "ReplacementTransform": {},
	"UP": {}, "DOWN": {}, "LEFT": {}, "RIGHT": {},
	"BLUE": {}, "RED": {}, "GREEN": {}, "PINK": {}, "YELLOW": {},
}

// Smaller indicator set for the string-scan fallback.
var manimIndicatorsFallback = []string{
	"Scene", "Circle", "Square", "Tex", "MathTex", "Create", "Write",
}

const manimImportLine = "from manim import *\n\n"

// EnsureImport prepends the manim wildcard import when the source references
// manim names but never imports the package. Source that already imports
// manim, or that never references it, comes back unchanged.
func EnsureImport(source []byte) []byte {
	tree, err := parse(source)
	if err == nil {
		defer tree.Close()
		root := tree.RootNode()
		if !root.HasError() {
			if hasManimImport(root, source) {
				return source
			}
			if referencesManim(root, source) {
				return append([]byte(manimImportLine), source...)
			}
			return source
		}
	}

	text := string(source)
	if strings.Contains(text, "from manim import") || strings.Contains(text, "import manim") {
		return source
	}
	for _, indicator := range manimIndicatorsFallback {
		if strings.Contains(text, indicator) {
			return append([]byte(manimImportLine), source...)
		}
	}
	return source
}

func hasManimImport(root *sitter.Node, source []byte) bool {
	found := false
	walk(root, func(node *sitter.Node) {
		if found {
			return
		}
		switch node.Type() {
		case "import_statement", "import_from_statement":
			if strings.Contains(node.Content(source), "manim") {
				found = true
			}
		}
	})
	return found
}

func referencesManim(root *sitter.Node, source []byte) bool {
	found := false
	walk(root, func(node *sitter.Node) {
		if found || node.Type() != "identifier" {
			return
		}
		if _, ok := manimIndicators[node.Content(source)]; ok {
			found = true
		}
	})
	return found
}

// FormatSource strips trailing whitespace and collapses runs of blank lines.
// Source with syntax errors is returned untouched so the error positions
// stay accurate.
func FormatSource(source []byte) []byte {
	if err := CheckSyntax(source); err != nil {
		return source
	}

	lines := strings.Split(string(source), "\n")
	var formatted []string
	prevEmpty := true
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if !prevEmpty {
				formatted = append(formatted, "")
			}
			prevEmpty = true
			continue
		}
		formatted = append(formatted, line)
		prevEmpty = false
	}
	for len(formatted) > 0 && formatted[len(formatted)-1] == "" {
		formatted = formatted[:len(formatted)-1]
	}
	return []byte(strings.Join(formatted, "\n"))
}
