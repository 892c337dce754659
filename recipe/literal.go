package recipe

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pevans/recipescan/pyast"
)

// foldString folds a single string literal, including f-strings.
func foldString(n *pyast.Node, src []byte, env *Env) Value {
	var start, end *pyast.Node
	var interps []*pyast.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "string_start":
			start = c
		case "string_end":
			end = c
		case "interpolation":
			interps = append(interps, c)
		}
	}
	if start == nil || end == nil || end.StartByte() < start.EndByte() {
		return UnknownValue
	}

	prefix := strings.ToLower(strings.TrimRight(pyast.Text(start, src), `'"`))
	raw := strings.Contains(prefix, "r")
	isBytes := strings.Contains(prefix, "b")
	isFormat := strings.Contains(prefix, "f")

	if !isFormat {
		body, ok := decodeBody(string(src[start.EndByte():end.StartByte()]), raw, isBytes)
		if !ok {
			return UnknownValue
		}
		if isBytes {
			return BytesValue(body)
		}
		return StringValue(body)
	}

	var b strings.Builder
	pos := start.EndByte()
	for _, in := range interps {
		lit, ok := decodeFormatLiteral(string(src[pos:in.StartByte()]), raw)
		if !ok {
			return UnknownValue
		}
		b.WriteString(lit)

		part, ok := foldInterpolation(in, src, env)
		if !ok {
			return UnknownValue
		}
		b.WriteString(part)
		pos = in.EndByte()
	}
	lit, ok := decodeFormatLiteral(string(src[pos:end.StartByte()]), raw)
	if !ok {
		return UnknownValue
	}
	b.WriteString(lit)

	return StringValue(b.String())
}

// foldInterpolation renders one {expr} part of an f-string with str().
// Conversions and format specifiers are not applied.
func foldInterpolation(in *pyast.Node, src []byte, env *Env) (string, bool) {
	v := Fold(in.ChildByFieldName("expression"), src, env)
	if v.IsUnknown() {
		return "", false
	}
	return v.PyStr(), true
}

func decodeFormatLiteral(s string, raw bool) (string, bool) {
	s = strings.ReplaceAll(s, "{{", "{")
	s = strings.ReplaceAll(s, "}}", "}")
	return decodeBody(s, raw, false)
}

// foldConcatenated folds implicit literal concatenation ("a" "b").
func foldConcatenated(n *pyast.Node, src []byte, env *Env) Value {
	parts := pyast.Children(n)
	if len(parts) == 0 {
		return UnknownValue
	}

	var b strings.Builder
	kind := Unknown
	for _, p := range parts {
		v := Fold(p, src, env)
		if !v.IsStringish() || (kind != Unknown && v.Kind() != kind) {
			return UnknownValue
		}
		kind = v.Kind()
		b.WriteString(v.Str())
	}

	if kind == Bytes {
		return BytesValue(b.String())
	}
	return StringValue(b.String())
}

func decodeBody(s string, raw, isBytes bool) (string, bool) {
	if raw {
		return s, true
	}
	return decodeEscapes(s, isBytes)
}

// decodeEscapes interprets backslash escapes. Unrecognized escapes are kept
// verbatim. Named unicode escapes cannot be resolved without the unicode
// name table and make the literal unresolvable.
func decodeEscapes(s string, isBytes bool) (string, bool) {
	if !strings.Contains(s, `\`) {
		return s, true
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}

		i++
		c = s[i]
		switch c {
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(c)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCode(&b, rune(n), isBytes)
			i = j - 1
		case 'x':
			n, ok := hexRun(s, i+1, 2)
			if !ok {
				return "", false
			}
			writeCode(&b, rune(n), isBytes)
			i += 2
		case 'u', 'U':
			if isBytes {
				b.WriteByte('\\')
				b.WriteByte(c)
				continue
			}
			width := 4
			if c == 'U' {
				width = 8
			}
			n, ok := hexRun(s, i+1, width)
			if !ok || n > utf8.MaxRune {
				return "", false
			}
			b.WriteRune(rune(n))
			i += width
		case 'N':
			if isBytes {
				b.WriteString(`\N`)
				continue
			}
			return "", false
		default:
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

func hexRun(s string, at, width int) (uint64, bool) {
	if at+width > len(s) {
		return 0, false
	}
	n, err := strconv.ParseUint(s[at:at+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

// writeCode writes a numeric escape: a raw byte in byte strings, a code
// point otherwise.
func writeCode(b *strings.Builder, r rune, isBytes bool) {
	if isBytes {
		b.WriteByte(byte(r))
		return
	}
	b.WriteRune(r)
}

// foldInt folds an integer literal. Values outside int64 are unresolvable.
func foldInt(text string) Value {
	t := strings.ReplaceAll(text, "_", "")
	t = strings.TrimRight(t, "lL")
	if t == "" || strings.HasSuffix(t, "j") || strings.HasSuffix(t, "J") {
		return UnknownValue
	}

	// A leading zero without a base prefix is only valid for zero itself.
	if len(t) > 1 && t[0] == '0' && t[1] >= '0' && t[1] <= '9' {
		if strings.Trim(t, "0") != "" {
			return UnknownValue
		}
		return IntValue(0)
	}

	n, err := strconv.ParseInt(t, 0, 64)
	if err != nil {
		return UnknownValue
	}
	return IntValue(n)
}

func foldFloat(text string) Value {
	t := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(t, "j") || strings.HasSuffix(t, "J") {
		return UnknownValue
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return UnknownValue
	}
	return FloatValue(f)
}
