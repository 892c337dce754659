package recipe

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind tags a folded Value.
type Kind int

const (
	// Unknown means the folder could not resolve an expression. It is the
	// zero Kind and is never stored in an Env.
	Unknown Kind = iota
	String
	Bytes
	Int
	Float
	Bool
	List
	Tuple
)

func (k Kind) String() string {
	switch k {
	case String:
		return "str"
	case Bytes:
		return "bytes"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Tuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Value is a statically known Python value. Bytes are held as a Go string of
// raw bytes. Values are immutable once built.
type Value struct {
	kind  Kind
	s     string
	i     int64
	f     float64
	items []Value
}

// UnknownValue is the "could not resolve" sentinel.
var UnknownValue = Value{}

func StringValue(s string) Value { return Value{kind: String, s: s} }
func BytesValue(b string) Value  { return Value{kind: Bytes, s: b} }
func IntValue(i int64) Value     { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

func BoolValue(b bool) Value {
	if b {
		return Value{kind: Bool, i: 1}
	}
	return Value{kind: Bool}
}

// ListValue builds a list. The items slice is copied.
func ListValue(items ...Value) Value {
	return Value{kind: List, items: append([]Value(nil), items...)}
}

// TupleValue builds a tuple. The items slice is copied.
func TupleValue(items ...Value) Value {
	return Value{kind: Tuple, items: append([]Value(nil), items...)}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsUnknown() bool   { return v.kind == Unknown }
func (v Value) IsSequence() bool  { return v.kind == List || v.kind == Tuple }
func (v Value) IsStringish() bool { return v.kind == String || v.kind == Bytes }

// Str returns the payload of a String or Bytes value.
func (v Value) Str() string { return v.s }

// Items returns a copy of a sequence's elements.
func (v Value) Items() []Value { return append([]Value(nil), v.items...) }

// Len is the number of elements of a sequence.
func (v Value) Len() int { return len(v.items) }

// Text returns the value as text: strings as-is, bytes decoded as UTF-8 with
// invalid bytes replaced, everything else via Python's str().
func (v Value) Text() string {
	switch v.kind {
	case String:
		return v.s
	case Bytes:
		return decodeReplace(v.s)
	default:
		return v.PyStr()
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.s != o.s || v.i != o.i || len(v.items) != len(o.items) {
		return false
	}
	if v.kind == Float && v.f != o.f {
		return false
	}
	for i := range v.items {
		if !v.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

// PyStr renders the value the way Python's str() would.
func (v Value) PyStr() string {
	if v.kind == String {
		return v.s
	}
	return v.PyRepr()
}

// PyRepr renders the value the way Python's repr() would.
func (v Value) PyRepr() string {
	switch v.kind {
	case String:
		return reprString(v.s, "")
	case Bytes:
		return reprBytes(v.s)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return reprFloat(v.f)
	case Bool:
		if v.i != 0 {
			return "True"
		}
		return "False"
	case List:
		return "[" + joinRepr(v.items) + "]"
	case Tuple:
		if len(v.items) == 1 {
			return "(" + v.items[0].PyRepr() + ",)"
		}
		return "(" + joinRepr(v.items) + ")"
	default:
		return "<unknown>"
	}
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.PyRepr()
	}
	return strings.Join(parts, ", ")
}

func reprFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if len(digits) < 2 {
			digits = strings.Repeat("0", 2-len(digits)) + digits
		}
		return mant + "e" + sign + digits
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func reprString(s, prefix string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = '"'
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\x` + strconv.FormatInt(int64(r)|0x100, 16)[1:])
		case r > 0x7f && !unicode.IsPrint(r):
			if r <= 0xffff {
				b.WriteString(`\u` + strconv.FormatInt(int64(r)|0x10000, 16)[1:])
			} else {
				b.WriteString(`\U` + strconv.FormatInt(int64(r)|0x100000000, 16)[1:])
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

func reprBytes(raw string) string {
	quote := byte('\'')
	if strings.Contains(raw, "'") && !strings.Contains(raw, `"`) {
		quote = '"'
	}

	var b strings.Builder
	b.WriteString("b")
	b.WriteByte(quote)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			b.WriteString(`\x` + strconv.FormatInt(int64(c)|0x100, 16)[1:])
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// decodeReplace decodes raw bytes as UTF-8, replacing each maximal
// invalid subpart with a single U+FFFD. A truncated sequence such as
// "\xe2\x82" is one replacement; a stray continuation byte is one each.
func decodeReplace(raw string) string {
	if utf8.ValidString(raw) {
		return raw
	}
	var b strings.Builder
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			i += invalidRun(raw[i:])
			continue
		}
		b.WriteString(raw[i : i+size])
		i += size
	}
	return b.String()
}

// invalidRun returns the length of the maximal subpart at the start of s:
// a valid lead byte plus the continuation bytes that could still have
// completed it, or 1 when the lead byte itself is invalid.
func invalidRun(s string) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch b0 := s[0]; {
	case b0 >= 0xC2 && b0 <= 0xDF:
		need = 1
	case b0 == 0xE0:
		need, lo = 2, 0xA0
	case b0 == 0xED:
		need, hi = 2, 0x9F
	case b0 >= 0xE1 && b0 <= 0xEF:
		need = 2
	case b0 == 0xF0:
		need, lo = 3, 0x90
	case b0 >= 0xF1 && b0 <= 0xF3:
		need = 3
	case b0 == 0xF4:
		need, hi = 3, 0x8F
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(s) && s[n] >= lo && s[n] <= hi {
		lo, hi = 0x80, 0xBF
		n++
	}
	return n
}

// DecodeText decodes document bytes the same way byte-string values are
// decoded.
func DecodeText(raw []byte) string {
	return decodeReplace(string(raw))
}
