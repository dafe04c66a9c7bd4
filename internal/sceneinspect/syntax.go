package sceneinspect

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxError describes the first syntax problem found in the source.
// Line and Column are 1-based.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
}

// CheckSyntax parses the source and returns a *SyntaxError describing the
// first error node, or nil when the source is valid Python.
func CheckSyntax(source []byte) error {
	tree, err := parse(source)
	if err != nil {
		return &SyntaxError{Line: 1, Column: 1, Message: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	if node := firstErrorNode(root); node != nil {
		point := node.StartPoint()
		msg := "invalid syntax"
		if node.IsMissing() {
			msg = "missing " + node.Type()
		} else if snippet := errorSnippet(node, source); snippet != "" {
			msg = fmt.Sprintf("invalid syntax near %q", snippet)
		}
		return &SyntaxError{
			Line:    int(point.Row) + 1,
			Column:  int(point.Column) + 1,
			Message: msg,
		}
	}

	return &SyntaxError{Line: 1, Column: 1, Message: "invalid syntax"}
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

func errorSnippet(node *sitter.Node, source []byte) string {
	content := strings.TrimSpace(node.Content(source))
	if content == "" {
		return ""
	}
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	const limit = 40
	if len(content) > limit {
		content = content[:limit]
	}
	return content
}
