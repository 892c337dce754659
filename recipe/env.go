package recipe

// Env is an immutable name→value scope. Each With call returns a new Env
// that shadows the receiver; the receiver itself never changes, so an Env can
// be handed to a fold and kept as a snapshot. The nil *Env is the empty
// scope.
type Env struct {
	parent *Env
	name   string
	value  Value
	size   int
}

// With returns a new scope binding name to v. Unknown values are never
// bound; the receiver is returned unchanged instead.
func (e *Env) With(name string, v Value) *Env {
	if v.IsUnknown() {
		return e
	}
	return &Env{parent: e, name: name, value: v, size: e.Len() + 1}
}

// Lookup returns the innermost binding for name.
func (e *Env) Lookup(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, true
		}
	}
	return UnknownValue, false
}

// Len is the number of bindings, counting shadowed ones.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return e.size
}

// Names returns each bound name once, ordered by first binding, the way a
// Python dict orders keys that were reassigned.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range e.bindings() {
		if !seen[b.name] {
			seen[b.name] = true
			names = append(names, b.name)
		}
	}
	return names
}

type binding struct {
	name  string
	value Value
}

// bindings returns every binding oldest first.
func (e *Env) bindings() []binding {
	out := make([]binding, e.Len())
	i := len(out) - 1
	for cur := e; cur != nil; cur = cur.parent {
		out[i] = binding{name: cur.name, value: cur.value}
		i--
	}
	return out
}
