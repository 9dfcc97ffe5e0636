package marshal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// List is an ordered container rendered as "[a, b]".
type List []any

// Tuple is an ordered container rendered as "(a, b)".
type Tuple []any

// Pair is one key/value entry of Pairs.
type Pair struct {
	Key   string
	Value any
}

// Pairs is a mapping whose key order is kept as given, rendered as
// "{'a': 1, 'b': 2}".
type Pairs []Pair

// Repr renders v deterministically. Strings are single-quoted inside
// containers and bare at the top level.
func Repr(v any) string {
	var b strings.Builder
	writeRepr(&b, v, false)
	return b.String()
}

func writeRepr(b *strings.Builder, v any, nested bool) {
	switch x := v.(type) {
	case List:
		writeSeq(b, "[", "]", x)
	case []any:
		writeSeq(b, "[", "]", x)
	case Tuple:
		writeSeq(b, "(", ")", x)
	case Pairs:
		b.WriteByte('{')
		for i, p := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, p.Key, true)
			b.WriteString(": ")
			writeRepr(b, p.Value, true)
		}
		b.WriteByte('}')
	case string:
		if nested {
			b.WriteString(quote(x))
		} else {
			b.WriteString(x)
		}
	case bool:
		if x {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case nil:
		b.WriteString("None")
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case float32:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case time.Time:
		b.WriteString(x.UTC().Format("2006-01-02T15:04:05.999999"))
	default:
		fmt.Fprint(b, x)
	}
}

func writeSeq(b *strings.Builder, open, close string, items []any) {
	b.WriteString(open)
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, item, true)
	}
	b.WriteString(close)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
