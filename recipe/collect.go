package recipe

import (
	"slices"

	"github.com/pevans/recipescan/pyast"
)

// RecipeBases are the base class names that mark a periodical recipe. A
// base matches by simple name or by the last component of a dotted name.
var RecipeBases = []string{
	"BasicNewsRecipe",
	"AutomaticNewsRecipe",
	"CustomIndexRecipe",
	"CalibrePeriodical",
}

// CollectConstants folds every top-level "name = expr" in document order.
// Each right-hand side sees only the constants bound before it, so forward
// references stay unresolved. Unknown results are not bound.
func CollectConstants(root *pyast.Node, src []byte) *Env {
	var env *Env
	for _, stmt := range pyast.Children(root) {
		name, value, ok := simpleAssignment(stmt, src, false)
		if !ok {
			continue
		}
		env = env.With(name, Fold(value, src, env))
	}
	return env
}

// FindRecipeClass returns the first top-level class deriving from one of
// RecipeBases, or nil.
func FindRecipeClass(root *pyast.Node, src []byte) *pyast.Node {
	for _, stmt := range pyast.Children(root) {
		cls := stmt
		if cls.Kind() == "decorated_definition" {
			cls = cls.ChildByFieldName("definition")
		}
		if cls == nil || cls.Kind() != "class_definition" {
			continue
		}
		if hasRecipeBase(cls, src) {
			return cls
		}
	}
	return nil
}

func hasRecipeBase(cls *pyast.Node, src []byte) bool {
	for _, base := range pyast.Children(cls.ChildByFieldName("superclasses")) {
		var name string
		switch base.Kind() {
		case "identifier":
			name = pyast.Text(base, src)
		case "attribute":
			name = pyast.Text(base.ChildByFieldName("attribute"), src)
		default:
			continue
		}
		if slices.Contains(RecipeBases, name) {
			return true
		}
	}
	return false
}

// ClassName returns the declared name of a class node.
func ClassName(cls *pyast.Node, src []byte) string {
	return pyast.Text(cls.ChildByFieldName("name"), src)
}

// ExtractAttributes walks the class body in order. Plain and annotated
// assignments fold against consts plus the attributes bound so far; "+="
// extends a previously bound sequence of the same kind. Every other
// statement is skipped.
//
// scope is consts with the class attributes layered on top; own holds the
// class attributes alone.
func ExtractAttributes(cls *pyast.Node, src []byte, consts *Env) (scope, own *Env) {
	scope = consts
	for _, stmt := range pyast.Children(cls.ChildByFieldName("body")) {
		if name, value, ok := simpleAssignment(stmt, src, true); ok {
			v := Fold(value, src, scope)
			scope = scope.With(name, v)
			own = own.With(name, v)
			continue
		}

		name, value, ok := augmentedAdd(stmt, src)
		if !ok {
			continue
		}
		current, bound := own.Lookup(name)
		extra := Fold(value, src, scope)
		if !bound || !current.IsSequence() || current.Kind() != extra.Kind() {
			continue
		}
		joined := appendSequence(current, extra)
		scope = scope.With(name, joined)
		own = own.With(name, joined)
	}
	return scope, own
}

func appendSequence(a, b Value) Value {
	items := append(a.Items(), b.items...)
	if a.Kind() == List {
		return ListValue(items...)
	}
	return TupleValue(items...)
}

// simpleAssignment matches a statement of the form "name = expr", or
// "name: T = expr" when annotated is set. Chained and destructuring
// assignments do not match.
func simpleAssignment(stmt *pyast.Node, src []byte, annotated bool) (string, *pyast.Node, bool) {
	asg := statementExpr(stmt, "assignment")
	if asg == nil {
		return "", nil, false
	}

	left := asg.ChildByFieldName("left")
	right := asg.ChildByFieldName("right")
	if left == nil || left.Kind() != "identifier" || right == nil {
		return "", nil, false
	}
	if right.Kind() == "assignment" || right.Kind() == "augmented_assignment" {
		return "", nil, false
	}
	if asg.ChildByFieldName("type") != nil && !annotated {
		return "", nil, false
	}

	return pyast.Text(left, src), right, true
}

// augmentedAdd matches "name += expr".
func augmentedAdd(stmt *pyast.Node, src []byte) (string, *pyast.Node, bool) {
	aug := statementExpr(stmt, "augmented_assignment")
	if aug == nil {
		return "", nil, false
	}

	left := aug.ChildByFieldName("left")
	op := aug.ChildByFieldName("operator")
	right := aug.ChildByFieldName("right")
	if left == nil || left.Kind() != "identifier" || op == nil || op.Kind() != "+=" || right == nil {
		return "", nil, false
	}
	return pyast.Text(left, src), right, true
}

// statementExpr returns the single expression of an expression statement
// when it has the wanted kind.
func statementExpr(stmt *pyast.Node, kind string) *pyast.Node {
	if stmt.Kind() != "expression_statement" {
		return nil
	}
	inner := pyast.Children(stmt)
	if len(inner) != 1 || inner[0].Kind() != kind {
		return nil
	}
	return inner[0]
}
