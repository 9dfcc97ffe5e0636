package schema

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// Column is a definition with its assigned slot.
type Column struct {
	Slot int
	Definition
}

// Table is an immutable slot assignment. Unindexed fields have no column
// but remain reachable through Definition for hydration.
type Table struct {
	documentField string
	columns       []Column
	bySlotName    map[string]int
	defs          map[string]Definition
}

// Build merges defs (identical duplicates from several models collapse)
// and assigns slots deterministically.
func Build(defs []Definition) (string, *Table, error) {
	merged := make(map[string]Definition, len(defs))
	upper := make(map[string]string, len(defs))
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return "", nil, err
		}
		if d.Boost == 0 {
			d.Boost = 1
		}
		if prev, ok := merged[d.Name]; ok {
			if prev != d {
				return "", nil, apperrors.SchemaError("field %q declared twice with different definitions (%s, %s)", d.Name, prev, d)
			}
			continue
		}
		key := strings.ToUpper(d.Name)
		if other, ok := upper[key]; ok {
			return "", nil, apperrors.SchemaError("fields %q and %q differ only by case", other, d.Name)
		}
		upper[key] = d.Name
		merged[d.Name] = d
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	docField := ""
	for _, name := range names {
		if !merged[name].Document {
			continue
		}
		if docField != "" {
			return "", nil, apperrors.SchemaError("multiple document fields: %q and %q", docField, name)
		}
		docField = name
	}
	if docField == "" {
		return "", nil, apperrors.SchemaError("no document field declared")
	}

	t := &Table{
		documentField: docField,
		columns:       make([]Column, 0, len(names)+1),
		bySlotName:    make(map[string]int, len(names)+1),
		defs:          merged,
	}
	t.add(Definition{Name: IDField, Type: marshal.Text, Indexed: true, Stored: true, Boost: 1})
	for _, name := range names {
		if d := merged[name]; d.Indexed {
			t.add(d)
		}
	}
	return docField, t, nil
}

func (t *Table) add(d Definition) {
	slot := len(t.columns)
	t.columns = append(t.columns, Column{Slot: slot, Definition: d})
	t.bySlotName[d.Name] = slot
}

// DocumentField is the name of the body field.
func (t *Table) DocumentField() string {
	return t.documentField
}

// Column looks up the slotted column of an indexed field (or "id").
func (t *Table) Column(name string) (Column, bool) {
	slot, ok := t.bySlotName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[slot], true
}

// Definition looks up any declared field, indexed or not.
func (t *Table) Definition(name string) (Definition, bool) {
	d, ok := t.defs[name]
	return d, ok
}

// Columns returns the columns in slot order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Definitions returns every declared field in name order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, 0, len(t.defs))
	for _, d := range t.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *Table) Len() int {
	return len(t.columns)
}
