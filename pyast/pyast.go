// Package pyast turns recipe source text into a syntax tree. Recipes are
// written in Python, so the tree is produced by the tree-sitter Python
// grammar. Nothing in this package evaluates the tree.
package pyast

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Node is a syntax tree node.
type Node = tree_sitter.Node

// SyntaxError describes the first malformed region found in a document.
// Line and Column are 1-based.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (line %d, column %d)", e.Msg, e.Line, e.Column)
}

// Tree is a successfully parsed document. Close must be called to release
// the parser's native memory.
type Tree struct {
	tree   *tree_sitter.Tree
	Source []byte
}

// Root returns the module node.
func (t *Tree) Root() *Node {
	return t.tree.RootNode()
}

// Close releases the tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Parse parses src. A document containing any error or missing node is
// rejected with a *SyntaxError pointing at the first one.
func Parse(src []byte) (*Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	lang := tree_sitter.NewLanguage(tree_sitter_python.Language())
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to load python grammar: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "no syntax tree produced"}
	}

	root := tree.RootNode()
	if root.HasError() {
		serr := firstError(root)
		tree.Close()
		if serr == nil {
			serr = &SyntaxError{Line: 1, Column: 1, Msg: "invalid syntax"}
		}
		return nil, serr
	}

	return &Tree{tree: tree, Source: src}, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *Node) *SyntaxError {
	if n == nil {
		return nil
	}
	if n.IsError() || n.IsMissing() {
		pos := n.StartPosition()
		msg := "invalid syntax"
		if n.IsMissing() {
			msg = fmt.Sprintf("expected %q", n.Kind())
		}
		return &SyntaxError{
			Line:   int(pos.Row) + 1,
			Column: int(pos.Column) + 1,
			Msg:    msg,
		}
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if serr := firstError(n.Child(i)); serr != nil {
			return serr
		}
	}
	return nil
}

// Text returns the source text spanned by n.
func Text(n *Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

// Children returns the named children of n, skipping comments and other
// extras that tree-sitter may attach anywhere in the tree.
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.IsExtra() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Unwrap strips any number of enclosing parentheses.
func Unwrap(n *Node) *Node {
	for n != nil && n.Kind() == "parenthesized_expression" {
		inner := Children(n)
		if len(inner) != 1 {
			return n
		}
		n = inner[0]
	}
	return n
}
