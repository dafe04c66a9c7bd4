// Package sceneinspect analyzes Manim scene source with tree-sitter. It
// finds renderable scene classes, estimates how many animations a render
// will produce, validates syntax, and patches in the manim import when the
// source forgot it. Every analysis has a regex fallback for source the
// parser cannot make sense of.
package sceneinspect

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Base classes Manim ships; any class deriving from one of these (or from
// anything with "Scene" in its name) is treated as renderable.
var sceneBaseClasses = map[string]struct{}{
	"Scene":                     {},
	"ThreeDScene":               {},
	"MovingCameraScene":         {},
	"ZoomedScene":               {},
	"VectorScene":               {},
	"LinearTransformationScene": {},
	"SampleSpaceScene":          {},
}

// Method names on self that advance the animation timeline.
var animationMethods = map[string]struct{}{
	"play":   {},
	"wait":   {},
	"add":    {},
	"remove": {},
}

var (
	sceneClassPattern = regexp.MustCompile(`class\s+(\w+)\s*\([^)]*(?:Scene|ThreeDScene|MovingCameraScene)[^)]*\)`)
	playCallPattern   = regexp.MustCompile(`self\.play\s*\(`)
	waitCallPattern   = regexp.MustCompile(`self\.wait\s*\(`)
)

func parse(source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return parser.ParseCtx(context.Background(), nil, source)
}

// SceneClasses returns the names of classes that inherit from a known scene
// base, in source order. Falls back to a regex scan when the source does not
// parse cleanly.
func SceneClasses(source []byte) []string {
	tree, err := parse(source)
	if err == nil {
		defer tree.Close()
		root := tree.RootNode()
		if !root.HasError() {
			var classes []string
			walk(root, func(node *sitter.Node) {
				if node.Type() != "class_definition" {
					return
				}
				nameNode := node.ChildByFieldName("name")
				if nameNode == nil {
					return
				}
				if classHasSceneBase(node, source) {
					classes = append(classes, nameNode.Content(source))
				}
			})
			if len(classes) > 0 {
				return classes
			}
		}
	}

	var classes []string
	for _, match := range sceneClassPattern.FindAllStringSubmatch(string(source), -1) {
		classes = append(classes, match[1])
	}
	return classes
}

func classHasSceneBase(class *sitter.Node, source []byte) bool {
	supers := class.ChildByFieldName("superclasses")
	if supers == nil {
		return false
	}
	for i := 0; i < int(supers.ChildCount()); i++ {
		base := supers.Child(i)
		var name string
		switch base.Type() {
		case "identifier":
			name = base.Content(source)
		case "attribute":
			if attr := base.ChildByFieldName("attribute"); attr != nil {
				name = attr.Content(source)
			}
		}
		if name == "" {
			continue
		}
		if _, ok := sceneBaseClasses[name]; ok || strings.Contains(name, "Scene") {
			return true
		}
	}
	return false
}

// CountAnimations estimates how many animation steps the source will run by
// counting self.play, self.wait, self.add, and self.remove calls. Always
// returns at least 1 so progress interpolation never divides by zero. Source
// that does not parse falls back to a regex count of play and wait calls.
func CountAnimations(source []byte) int {
	tree, err := parse(source)
	if err == nil {
		defer tree.Close()
		root := tree.RootNode()
		if !root.HasError() {
			count := 0
			walk(root, func(node *sitter.Node) {
				if node.Type() != "call" {
					return
				}
				fn := node.ChildByFieldName("function")
				if fn == nil || fn.Type() != "attribute" {
					return
				}
				obj := fn.ChildByFieldName("object")
				if obj == nil || obj.Type() != "identifier" || obj.Content(source) != "self" {
					return
				}
				attr := fn.ChildByFieldName("attribute")
				if attr == nil {
					return
				}
				if _, ok := animationMethods[attr.Content(source)]; ok {
					count++
				}
			})
			return max(count, 1)
		}
	}

	text := string(source)
	count := len(playCallPattern.FindAllString(text, -1)) +
		len(waitCallPattern.FindAllString(text, -1))
	return max(count, 1)
}

func walk(node *sitter.Node, visit func(*sitter.Node)) {
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visit)
	}
}
