package index

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// Document is a model instance as supplied by the caller.
type Document struct {
	Model  string         `json:"model"`
	PK     string         `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// ID is the global identifier "<model>.<pk>".
func (d Document) ID() string {
	return GlobalID(d.Model, d.PK)
}

func GlobalID(model, pk string) string {
	return model + "." + pk
}

// Doc is a prepared document. Once handed to Update it is owned by the
// index and must be treated as read-only.
type Doc struct {
	ID     string
	Model  string
	PK     string
	Fields map[string]any
	Values map[string][]string
	Terms  map[string]*TermHit
	Length float64
}

// Value returns the encoded slot values of an indexed field, or of "id".
func (d *Doc) Value(field string) []string {
	if field == schema.IDField {
		return []string{d.PK}
	}
	return d.Values[field]
}

// Prepare tokenizes and marshals doc against table. It touches no shared
// state, so callers run it before taking the index write lock.
func Prepare(table *schema.Table, doc Document) (*Doc, error) {
	if doc.Model == "" || doc.PK == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "document needs a model and a primary key")
	}
	d := &Doc{
		ID:     doc.ID(),
		Model:  doc.Model,
		PK:     doc.PK,
		Fields: make(map[string]any, len(doc.Fields)),
		Values: make(map[string][]string, len(doc.Fields)),
		Terms:  make(map[string]*TermHit),
	}

	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	base := 0
	for _, name := range names {
		def, ok := table.Definition(name)
		if !ok {
			return nil, apperrors.UnknownField(name)
		}
		v := doc.Fields[name]
		encoded, err := def.Marshal(v)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		d.Fields[name] = v
		if !def.Indexed {
			continue
		}
		d.Values[name] = encoded

		weight := def.Weight()
		prefix := def.Prefix()
		if def.Type != marshal.Text {
			for _, enc := range encoded {
				d.add(prefix+enc, KindField, name, weight, -1)
			}
			continue
		}
		for _, text := range encoded {
			tokens := tokenizer.Tokenize(text)
			for _, tok := range tokens {
				pos := base + tok.Position
				d.add(tok.Term, KindWord, "", weight, pos)
				d.add(StemPrefix+tok.Stem, KindStem, "", weight, pos)
				d.add(prefix+tok.Term, KindField, name, weight, pos)
				d.add(StemPrefix+prefix+tok.Stem, KindFieldStem, name, weight, pos)
				d.Length += weight
			}
			base += len(tokens) + fieldPositionGap
		}
	}

	d.add(IDTermPrefix+d.ID, KindIdentifier, "", 0, -1)
	d.add(PKTermPrefix+d.PK, KindIdentifier, schema.IDField, 0, -1)
	d.add(ModelTermPrefix+d.Model, KindIdentifier, "", 0, -1)
	return d, nil
}

func (d *Doc) add(term string, kind Kind, field string, weight float64, pos int) {
	hit, ok := d.Terms[term]
	if !ok {
		hit = &TermHit{Kind: kind, Field: field}
		d.Terms[term] = hit
	}
	hit.Weight += weight
	if pos >= 0 {
		hit.Positions = append(hit.Positions, uint32(pos))
	}
}

// IsWord reports whether term is an unprefixed word.
func IsWord(term string) bool {
	return term != "" && !strings.HasPrefix(term, StemPrefix) && (term[0] < 'A' || term[0] > 'Z')
}
