package recipe

import (
	"github.com/pevans/recipescan/pyast"
)

// Fold statically resolves the expression n against env. It never executes
// anything and never fails: any construct outside the supported subset, or
// any reference it cannot resolve, yields UnknownValue, which propagates up
// through every composite fold.
//
// Supported, in order: literals, names bound in env, list and tuple
// literals, "+" on two strings, two byte strings or two lists, f-strings,
// and str.format calls on a resolvable template.
func Fold(n *pyast.Node, src []byte, env *Env) Value {
	n = pyast.Unwrap(n)
	if n == nil {
		return UnknownValue
	}

	switch n.Kind() {
	case "string":
		return foldString(n, src, env)
	case "concatenated_string":
		return foldConcatenated(n, src, env)
	case "integer":
		return foldInt(pyast.Text(n, src))
	case "float":
		return foldFloat(pyast.Text(n, src))
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	case "identifier":
		v, ok := env.Lookup(pyast.Text(n, src))
		if !ok {
			return UnknownValue
		}
		return v
	case "list":
		return foldSequence(n, src, env, List)
	case "tuple", "expression_list":
		return foldSequence(n, src, env, Tuple)
	case "binary_operator":
		return foldAdd(n, src, env)
	case "call":
		return foldFormatCall(n, src, env)
	}

	return UnknownValue
}

func foldSequence(n *pyast.Node, src []byte, env *Env, kind Kind) Value {
	elems := pyast.Children(n)
	items := make([]Value, 0, len(elems))
	for _, e := range elems {
		v := Fold(e, src, env)
		if v.IsUnknown() {
			return UnknownValue
		}
		items = append(items, v)
	}

	if kind == List {
		return ListValue(items...)
	}
	return TupleValue(items...)
}

func foldAdd(n *pyast.Node, src []byte, env *Env) Value {
	op := n.ChildByFieldName("operator")
	if op == nil || op.Kind() != "+" {
		return UnknownValue
	}

	left := Fold(n.ChildByFieldName("left"), src, env)
	right := Fold(n.ChildByFieldName("right"), src, env)
	if left.IsUnknown() || right.IsUnknown() || left.Kind() != right.Kind() {
		return UnknownValue
	}

	switch left.Kind() {
	case String:
		return StringValue(left.s + right.s)
	case Bytes:
		return BytesValue(left.s + right.s)
	case List:
		return ListValue(append(left.Items(), right.items...)...)
	}
	return UnknownValue
}

// foldFormatCall handles <template>.format(...). Every other call is
// unresolvable.
func foldFormatCall(n *pyast.Node, src []byte, env *Env) Value {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return UnknownValue
	}
	if pyast.Text(fn.ChildByFieldName("attribute"), src) != "format" {
		return UnknownValue
	}

	base := Fold(fn.ChildByFieldName("object"), src, env)
	if base.Kind() != String {
		return UnknownValue
	}

	argList := n.ChildByFieldName("arguments")
	if argList == nil || argList.Kind() != "argument_list" {
		return UnknownValue
	}

	var args []Value
	kwargs := make(map[string]Value)
	for _, a := range pyast.Children(argList) {
		switch a.Kind() {
		case "keyword_argument":
			v := Fold(a.ChildByFieldName("value"), src, env)
			if v.IsUnknown() {
				return UnknownValue
			}
			kwargs[pyast.Text(a.ChildByFieldName("name"), src)] = v
		case "list_splat", "dictionary_splat":
			return UnknownValue
		default:
			v := Fold(a, src, env)
			if v.IsUnknown() {
				return UnknownValue
			}
			args = append(args, v)
		}
	}

	out, ok := pyFormat(base.s, args, kwargs)
	if !ok {
		return UnknownValue
	}
	return StringValue(out)
}
