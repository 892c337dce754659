package recipe

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// pyFormat applies str.format substitution for the subset that can be done
// without evaluating anything: {}, {0}, {name}, {{, }}, the !s and !r
// conversions, and the specs applySpec accepts. Attribute or index lookups
// in a field, other specs, mixed automatic and manual numbering, and missing
// arguments all fail.
func pyFormat(tmpl string, args []Value, kwargs map[string]Value) (string, bool) {
	const (
		numberingNone = iota
		numberingAuto
		numberingManual
	)

	var b strings.Builder
	numbering := numberingNone
	next := 0

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", false
			}
			field := tmpl[i+1 : i+1+end]
			i += end + 1
			if strings.ContainsRune(field, '{') {
				return "", false
			}

			name, conv, spec := splitField(field)

			var v Value
			switch {
			case name == "":
				if numbering == numberingManual || next >= len(args) {
					return "", false
				}
				numbering = numberingAuto
				v = args[next]
				next++
			case isDigits(name):
				idx, err := strconv.Atoi(name)
				if numbering == numberingAuto || err != nil || idx >= len(args) {
					return "", false
				}
				numbering = numberingManual
				v = args[idx]
			case isIdentifier(name):
				kv, ok := kwargs[name]
				if !ok {
					return "", false
				}
				v = kv
			default:
				return "", false
			}

			switch conv {
			case "":
			case "s":
				v = StringValue(v.PyStr())
			case "r":
				v = StringValue(v.PyRepr())
			default:
				return "", false
			}

			out, ok := applySpec(v, spec)
			if !ok {
				return "", false
			}
			b.WriteString(out)

		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", false

		default:
			b.WriteByte(c)
		}
	}

	return b.String(), true
}

// splitField splits "name!conv:spec".
func splitField(field string) (name, conv, spec string) {
	name, spec, _ = strings.Cut(field, ":")
	name, conv, _ = strings.Cut(name, "!")
	return name, conv, spec
}

// applySpec renders v under a format spec of the form
// [[fill]align][width][type], align one of < > ^ and type s for strings or
// d for integers. Strings default to left alignment and integers to right.
// Signs, zero padding, grouping, precision and every other type fail, as do
// specs on any other kind of value.
func applySpec(v Value, spec string) (string, bool) {
	if spec == "" {
		return v.PyStr(), true
	}

	rs := []rune(spec)
	fill, align := ' ', rune(0)
	switch {
	case len(rs) >= 2 && strings.ContainsRune("<>^", rs[1]):
		fill, align = rs[0], rs[1]
		rs = rs[2:]
	case len(rs) >= 1 && strings.ContainsRune("<>^", rs[0]):
		align = rs[0]
		rs = rs[1:]
	}

	i := 0
	for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
		i++
	}
	if i > 0 && rs[0] == '0' {
		return "", false
	}
	width := 0
	if i > 0 {
		n, err := strconv.Atoi(string(rs[:i]))
		if err != nil {
			return "", false
		}
		width = n
	}
	typ := string(rs[i:])

	switch {
	case v.Kind() == String && (typ == "" || typ == "s"):
		if align == 0 {
			align = '<'
		}
	case v.Kind() == Int && (typ == "" || typ == "d"):
		if align == 0 {
			align = '>'
		}
	default:
		return "", false
	}

	text := v.PyStr()
	pad := width - utf8.RuneCountInString(text)
	if pad <= 0 {
		return text, true
	}

	switch align {
	case '<':
		return text + strings.Repeat(string(fill), pad), true
	case '>':
		return strings.Repeat(string(fill), pad) + text, true
	default:
		left := pad / 2
		return strings.Repeat(string(fill), left) + text + strings.Repeat(string(fill), pad-left), true
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}
