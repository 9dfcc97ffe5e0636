// Package ingest defines the index events carried over Kafka and applies
// them to a search engine: full-replace updates of a model's documents,
// single removals, and clears.
package ingest

import (
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/search"
)

// Op names what an Event does to the index.
type Op string

const (
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// Event is the Kafka message payload for one index change.
//
// update: Model, Fields and Documents.
// remove: Model and PK.
// clear:  Models, or nothing to clear the whole index.
type Event struct {
	Op        Op                `json:"op"`
	Model     string            `json:"model,omitempty"`
	Fields    []FieldSpec       `json:"fields,omitempty"`
	Documents []DocumentPayload `json:"documents,omitempty"`
	PK        string            `json:"pk,omitempty"`
	Models    []string          `json:"models,omitempty"`
}

// FieldSpec is the wire form of a field definition. Indexed and Stored
// default to true when absent.
type FieldSpec struct {
	Name        string       `json:"name"`
	Type        marshal.Type `json:"type"`
	MultiValued bool         `json:"multiValued,omitempty"`
	Indexed     *bool        `json:"indexed,omitempty"`
	Stored      *bool        `json:"stored,omitempty"`
	Faceted     bool         `json:"faceted,omitempty"`
	Document    bool         `json:"document,omitempty"`
	Boost       float64      `json:"boost,omitempty"`
}

// DocumentPayload carries raw JSON field values; they are coerced to the
// declared field types before indexing.
type DocumentPayload struct {
	PK     string         `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// Definition converts the wire field into a schema definition.
func (f FieldSpec) Definition() schema.Definition {
	d := schema.Field(f.Name, f.Type)
	d.MultiValued = f.MultiValued
	d.Faceted = f.Faceted
	d.Document = f.Document
	if f.Indexed != nil {
		d.Indexed = *f.Indexed
	}
	if f.Stored != nil {
		d.Stored = *f.Stored
	}
	if f.Boost != 0 {
		d.Boost = f.Boost
	}
	return d
}

// Descriptor builds the model descriptor of an update event.
func (e Event) Descriptor() search.Descriptor {
	defs := make([]schema.Definition, len(e.Fields))
	for i, f := range e.Fields {
		defs[i] = f.Definition()
	}
	return search.Descriptor{Model: e.Model, Fields: defs}
}

// SpecOf is the inverse of FieldSpec.Definition, used when publishing.
func SpecOf(d schema.Definition) FieldSpec {
	indexed, stored := d.Indexed, d.Stored
	return FieldSpec{
		Name:        d.Name,
		Type:        d.Type,
		MultiValued: d.MultiValued,
		Indexed:     &indexed,
		Stored:      &stored,
		Faceted:     d.Faceted,
		Document:    d.Document,
		Boost:       d.Boost,
	}
}
