package search

import (
	"reflect"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
)

// Descriptor declares the searchable fields of one model type.
type Descriptor struct {
	Model  string              `json:"model"`
	Fields []schema.Definition `json:"fields"`
}

func (d Descriptor) equal(other Descriptor) bool {
	return d.Model == other.Model && reflect.DeepEqual(d.Fields, other.Fields)
}

// Document is one model instance: its primary key and field values keyed by
// field name. Multi-valued fields take a slice.
type Document struct {
	PK     string         `json:"pk"`
	Fields map[string]any `json:"fields"`
}
