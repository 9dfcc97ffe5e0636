// Package marshal converts typed field values into strings whose byte order
// matches the natural order of the values, and back.
//
// Dates are normalised before encoding: they are converted to UTC and
// truncated to whole microseconds. Unmarshal therefore returns the same
// instant in UTC, and drops any nanoseconds below a microsecond.
package marshal

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// Type is the closed set of field value types.
type Type int

const (
	Text Type = iota
	Integer
	Long
	Float
	Boolean
	Date
)

var typeNames = [...]string{"text", "integer", "long", "float", "boolean", "date"}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType maps a type name to its Type.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}
	return Text, apperrors.SchemaError("unknown field type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

const (
	smallIntLimit = 1_000_000_000_000
	dateLayout    = "20060102150405"
	dateLen       = len(dateLayout) + 6
)

var (
	minDate = "00010101000000000000"
	maxDate = "99991231235959999999"
	maxText = strings.Repeat(string(rune(0x10FFFF)), 4)
)

// Marshal encodes v as a value of type t. Containers (List, Tuple, Pairs)
// encode to their textual representation whatever t is.
func Marshal(v any, t Type) (string, error) {
	switch c := v.(type) {
	case List, Tuple, Pairs:
		return Repr(c), nil
	}
	switch t {
	case Text:
		s, ok := v.(string)
		if !ok {
			return "", mismatch(v, t)
		}
		return s, nil
	case Integer, Long:
		n, ok := asInt64(v)
		if !ok {
			return "", mismatch(v, t)
		}
		return encodeInt(n), nil
	case Float:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		default:
			return "", mismatch(v, t)
		}
		if math.IsNaN(f) {
			return "", apperrors.TypeMismatch("", "NaN has no sortable encoding")
		}
		return encodeFloat(f), nil
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return "", mismatch(v, t)
		}
		if b {
			return "t", nil
		}
		return "f", nil
	case Date:
		d, ok := v.(time.Time)
		if !ok {
			return "", mismatch(v, t)
		}
		d = d.UTC()
		if d.Year() < 1 || d.Year() > 9999 {
			return "", apperrors.TypeMismatch("", "date %s is outside years 1-9999", d)
		}
		return d.Format(dateLayout) + fmt.Sprintf("%06d", d.Nanosecond()/1000), nil
	}
	return "", apperrors.TypeMismatch("", "unsupported type %v", t)
}

// Unmarshal decodes s, which must have been produced by Marshal with the
// same type. Integers and longs decode to int64, dates to UTC time.Time.
func Unmarshal(s string, t Type) (any, error) {
	switch t {
	case Text:
		return s, nil
	case Integer, Long:
		return decodeInt(s)
	case Float:
		if len(s) != 8 {
			return nil, apperrors.TypeMismatch("", "float encoding must be 8 bytes, got %d", len(s))
		}
		return decodeFloat(s), nil
	case Boolean:
		switch s {
		case "t":
			return true, nil
		case "f":
			return false, nil
		}
		return nil, apperrors.TypeMismatch("", "invalid boolean encoding %q", s)
	case Date:
		return decodeDate(s)
	}
	return nil, apperrors.TypeMismatch("", "unsupported type %v", t)
}

// Min returns the encoding that sorts at or below every value of type t.
func Min(t Type) string {
	switch t {
	case Integer, Long:
		return encodeInt(math.MinInt64)
	case Float:
		return "\x00\x00\x00\x00\x00\x00\x00\x00"
	case Boolean:
		return "f"
	case Date:
		return minDate
	}
	return ""
}

// Max returns the encoding that sorts at or above every value of type t.
func Max(t Type) string {
	switch t {
	case Integer, Long:
		return encodeInt(math.MaxInt64)
	case Float:
		return "\xff\xff\xff\xff\xff\xff\xff\xff"
	case Boolean:
		return "t"
	case Date:
		return maxDate
	}
	return maxText
}

func mismatch(v any, t Type) error {
	return apperrors.TypeMismatch("", "cannot marshal %T as %s", v, t)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

// Non-negative values below 10^12 keep the 12-digit form. Larger values
// get a ':' lead byte (sorts after every digit), negatives a '-' lead byte
// (sorts before every digit) over the biased magnitude.
func encodeInt(n int64) string {
	switch {
	case n >= 0 && n < smallIntLimit:
		return fmt.Sprintf("%012d", n)
	case n >= smallIntLimit:
		return fmt.Sprintf(":%019d", n)
	default:
		return fmt.Sprintf("-%019d", uint64(n)^(1<<63))
	}
}

func decodeInt(s string) (int64, error) {
	switch {
	case len(s) == 12:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, apperrors.TypeMismatch("", "invalid integer encoding %q", s)
		}
		return int64(n), nil
	case len(s) == 20 && s[0] == ':':
		n, err := strconv.ParseUint(s[1:], 10, 64)
		if err != nil || n < smallIntLimit || n > math.MaxInt64 {
			return 0, apperrors.TypeMismatch("", "invalid integer encoding %q", s)
		}
		return int64(n), nil
	case len(s) == 20 && s[0] == '-':
		n, err := strconv.ParseUint(s[1:], 10, 64)
		if err != nil || n >= 1<<63 {
			return 0, apperrors.TypeMismatch("", "invalid integer encoding %q", s)
		}
		return int64(n ^ (1 << 63)), nil
	}
	return 0, apperrors.TypeMismatch("", "invalid integer encoding %q", s)
}

func encodeFloat(f float64) string {
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return string(buf[:])
}

func decodeFloat(s string) float64 {
	bits := binary.BigEndian.Uint64([]byte(s))
	if bits&(1<<63) != 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

func decodeDate(s string) (time.Time, error) {
	if len(s) != dateLen && len(s) != len(dateLayout) {
		return time.Time{}, apperrors.TypeMismatch("", "invalid date encoding %q", s)
	}
	d, err := time.ParseInLocation(dateLayout, s[:len(dateLayout)], time.UTC)
	if err != nil {
		return time.Time{}, apperrors.TypeMismatch("", "invalid date encoding %q", s)
	}
	if len(s) == dateLen {
		micros, err := strconv.Atoi(s[len(dateLayout):])
		if err != nil || micros < 0 {
			return time.Time{}, apperrors.TypeMismatch("", "invalid date encoding %q", s)
		}
		d = d.Add(time.Duration(micros) * time.Microsecond)
	}
	return d, nil
}
