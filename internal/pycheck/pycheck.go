// Package pycheck validates that generated test code parses as Python.
// It uses the tree-sitter Python grammar so no Python interpreter is needed
// for the syntax step.
package pycheck

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxError describes the first parse problem found in the source.
// Line and Column are 1-based.
type SyntaxError struct {
	Line    int
	Column  int
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("syntax error at line %d, column %d near %q", e.Line, e.Column, e.Snippet)
	}
	return fmt.Sprintf("syntax error at line %d, column %d", e.Line, e.Column)
}

// Check parses src as a Python module. It returns nil when the source is
// syntactically valid and a *SyntaxError otherwise. Invalid syntax is data,
// not a failure of the checker itself; the error return covers only parser
// invocation problems (e.g. cancelled context).
func Check(ctx context.Context, src string) (*SyntaxError, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	content := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	bad := firstErrorNode(root)
	if bad == nil {
		// HasError without a locatable node; report the document start.
		return &SyntaxError{Line: 1, Column: 1}, nil
	}

	se := &SyntaxError{
		Line:   int(bad.StartPoint().Row) + 1,
		Column: int(bad.StartPoint().Column) + 1,
	}
	snippet := bad.Content(content)
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	se.Snippet = snippet
	return se, nil
}

// firstErrorNode walks the tree depth-first and returns the first ERROR or
// missing node in document order.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
