package ingest

import (
	"encoding/json"
	"math"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/search"
)

// Documents coerces the payloads of an update event to the declared field
// types. Fields the model does not declare are passed through untouched so
// the engine reports them.
func Documents(desc search.Descriptor, payloads []DocumentPayload) ([]search.Document, error) {
	defs := make(map[string]schema.Definition, len(desc.Fields))
	for _, d := range desc.Fields {
		defs[d.Name] = d
	}
	docs := make([]search.Document, len(payloads))
	for i, p := range payloads {
		fields := make(map[string]any, len(p.Fields))
		for name, raw := range p.Fields {
			def, ok := defs[name]
			if !ok {
				fields[name] = raw
				continue
			}
			v, err := coerceField(def, raw)
			if err != nil {
				return nil, err
			}
			fields[name] = v
		}
		docs[i] = search.Document{PK: p.PK, Fields: fields}
	}
	return docs, nil
}

func coerceField(def schema.Definition, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	items, isList := raw.([]any)
	if !def.MultiValued {
		if isList {
			return nil, apperrors.TypeMismatch(def.Name, "single-valued field got a list")
		}
		return coerce(def, raw)
	}
	if !isList {
		items = []any{raw}
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := coerce(def, item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func coerce(def schema.Definition, raw any) (any, error) {
	switch def.Type {
	case marshal.Integer, marshal.Long:
		switch v := raw.(type) {
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, apperrors.TypeMismatch(def.Name, "%q is not an integer", v.String())
			}
			return n, nil
		case float64:
			if v != math.Trunc(v) {
				return nil, apperrors.TypeMismatch(def.Name, "%v is not an integer", v)
			}
			return int64(v), nil
		}
	case marshal.Float:
		switch v := raw.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, apperrors.TypeMismatch(def.Name, "%q is not a number", v.String())
			}
			return f, nil
		case float64:
			return v, nil
		}
	case marshal.Date:
		if s, ok := raw.(string); ok {
			t, err := marshal.ParseDate(s)
			if err != nil {
				return nil, apperrors.TypeMismatch(def.Name, "%q is not a date", s)
			}
			return t, nil
		}
	case marshal.Boolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case marshal.Text:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	}
	return nil, apperrors.TypeMismatch(def.Name, "cannot use %T as %s", raw, def.Type)
}
