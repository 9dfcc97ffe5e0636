// Package schema turns the field definitions registered by every model into
// one slot table: the reserved identifier column at slot 0, then each
// indexed field in ascending name order.
package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// IDField is the reserved identifier column.
const IDField = "id"

var (
	fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	// Upper-cased field names become term prefixes, so these would collide
	// with identifier terms.
	reserved = map[string]struct{}{
		"ID":          {},
		"CONTENTTYPE": {},
	}
)

// Definition declares one field of a model.
type Definition struct {
	Name        string       `json:"name"`
	Type        marshal.Type `json:"type"`
	MultiValued bool         `json:"multiValued,omitempty"`
	Indexed     bool         `json:"indexed"`
	Stored      bool         `json:"stored"`
	Faceted     bool         `json:"faceted,omitempty"`
	Document    bool         `json:"document,omitempty"`
	Boost       float64      `json:"boost,omitempty"`
}

// Field returns an indexed, stored, single-valued definition with boost 1.
func Field(name string, t marshal.Type) Definition {
	return Definition{Name: name, Type: t, Indexed: true, Stored: true, Boost: 1}
}

// DocumentField returns the text definition of a model's body.
func DocumentField(name string) Definition {
	d := Field(name, marshal.Text)
	d.Document = true
	return d
}

func (d Definition) Multi() Definition { d.MultiValued = true; return d }
func (d Definition) Facet() Definition { d.Faceted = true; return d }
func (d Definition) Unindexed() Definition { d.Indexed = false; return d }
func (d Definition) Unstored() Definition { d.Stored = false; return d }

func (d Definition) WithBoost(boost float64) Definition {
	d.Boost = boost
	return d
}

// Prefix is the term prefix for values of this field, e.g. "XNAME".
func (d Definition) Prefix() string {
	return "X" + strings.ToUpper(d.Name)
}

// Weight is the effective boost.
func (d Definition) Weight() float64 {
	if d.Boost == 0 {
		return 1
	}
	return d.Boost
}

// Sortable reports whether the field has a slot to sort on.
func (d Definition) Sortable() bool {
	return d.Indexed
}

// Facetable reports whether field facets may be requested. Text fields must
// opt in with Faceted.
func (d Definition) Facetable() bool {
	return d.Indexed && (d.Type != marshal.Text || d.Faceted)
}

// Marshal encodes a field value. Multi-valued fields accept a slice or
// marshal.List; each element is encoded separately, in order.
func (d Definition) Marshal(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	if d.MultiValued {
		items, ok := asSlice(v)
		if !ok {
			return nil, apperrors.TypeMismatch(d.Name, "multi-valued field needs a list, got %T", v)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			enc, err := marshal.Marshal(item, d.Type)
			if err != nil {
				return nil, withField(err, d.Name)
			}
			out = append(out, enc)
		}
		return out, nil
	}
	if _, ok := asSlice(v); ok {
		return nil, apperrors.TypeMismatch(d.Name, "single-valued field got a list")
	}
	enc, err := marshal.Marshal(v, d.Type)
	if err != nil {
		return nil, withField(err, d.Name)
	}
	return []string{enc}, nil
}

// Unmarshal decodes values produced by Marshal: a scalar for single-valued
// fields, a []any for multi-valued ones.
func (d Definition) Unmarshal(encoded []string) (any, error) {
	if !d.MultiValued {
		if len(encoded) == 0 {
			return nil, nil
		}
		v, err := marshal.Unmarshal(encoded[0], d.Type)
		return v, withField(err, d.Name)
	}
	out := make([]any, 0, len(encoded))
	for _, enc := range encoded {
		v, err := marshal.Unmarshal(enc, d.Type)
		if err != nil {
			return nil, withField(err, d.Name)
		}
		out = append(out, v)
	}
	return out, nil
}

func (d Definition) validate() error {
	if !fieldNameRe.MatchString(d.Name) {
		return apperrors.SchemaError("invalid field name %q", d.Name)
	}
	if strings.EqualFold(d.Name, IDField) {
		return apperrors.SchemaError("field name %q is reserved", d.Name)
	}
	if _, ok := reserved[strings.ToUpper(d.Name)]; ok {
		return apperrors.SchemaError("field name %q is reserved", d.Name)
	}
	if d.Boost < 0 {
		return apperrors.SchemaError("field %q has negative boost %v", d.Name, d.Boost)
	}
	if d.Document && (d.Type != marshal.Text || d.MultiValued || !d.Indexed) {
		return apperrors.SchemaError("document field %q must be an indexed single-valued text field", d.Name)
	}
	return nil
}

func (d Definition) String() string {
	return fmt.Sprintf("%s:%s", d.Name, d.Type)
}

func asSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case marshal.List:
		return x, true
	case marshal.Tuple:
		return x, true
	case []any:
		return x, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func withField(err error, field string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.Field == "" {
		appErr.Field = field
	}
	return err
}
