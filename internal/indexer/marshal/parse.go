package marshal

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	dateLayout,
}

// Parse reads a literal written by a person (a query value, a JSON string)
// as a value of type t.
func Parse(s string, t Type) (any, error) {
	s = strings.TrimSpace(s)
	switch t {
	case Text:
		return s, nil
	case Integer, Long:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, apperrors.TypeMismatch("", "%q is not an integer", s)
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, apperrors.TypeMismatch("", "%q is not a number", s)
		}
		return f, nil
	case Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, apperrors.TypeMismatch("", "%q is not a boolean", s)
		}
		return b, nil
	case Date:
		return ParseDate(s)
	}
	return nil, apperrors.TypeMismatch("", "unsupported type %v", t)
}

// ParseDate accepts RFC 3339, ISO dates with optional time, and the
// 14-digit compact form. Times without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, apperrors.TypeMismatch("", "%q is not a date", s)
}
