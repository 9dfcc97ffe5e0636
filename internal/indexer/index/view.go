package index

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// View is a read-locked window over one generation of a MemoryIndex.
// Bitmaps it returns are shared with the index: clone before mutating.
type View struct {
	m *MemoryIndex
}

func (v *View) Generation() uint64 {
	return v.m.generation
}

func (v *View) DocCount() int {
	return len(v.m.docs)
}

// AvgLength is the mean document length used for BM25 normalisation.
func (v *View) AvgLength() float64 {
	if len(v.m.docs) == 0 {
		return 0
	}
	return v.m.totalLength / float64(len(v.m.docs))
}

// All is the set of live documents.
func (v *View) All() *roaring.Bitmap {
	return v.m.live
}

// Docs is the set of documents containing term, or nil.
func (v *View) Docs(term string) *roaring.Bitmap {
	if te, ok := v.m.terms[term]; ok {
		return te.docs
	}
	return nil
}

func (v *View) Has(term string) bool {
	_, ok := v.m.terms[term]
	return ok
}

func (v *View) DocFreq(term string) int {
	if te, ok := v.m.terms[term]; ok {
		return len(te.postings)
	}
	return 0
}

func (v *View) Posting(term string, doc uint32) (*Posting, bool) {
	te, ok := v.m.terms[term]
	if !ok {
		return nil, false
	}
	p, ok := te.postings[doc]
	return p, ok
}

// ModelDocs is a new bitmap of the documents of the given models.
func (v *View) ModelDocs(models ...string) *roaring.Bitmap {
	out := roaring.New()
	for _, model := range models {
		if bm, ok := v.m.models[model]; ok {
			out.Or(bm)
		}
	}
	return out
}

// Models lists the models that currently have documents.
func (v *View) Models() []string {
	out := make([]string, 0, len(v.m.models))
	for model := range v.m.models {
		out = append(out, model)
	}
	sort.Strings(out)
	return out
}

func (v *View) Doc(num uint32) (*Doc, bool) {
	d, ok := v.m.docs[num]
	return d, ok
}

// Lookup maps a global ID to its document number.
func (v *View) Lookup(id string) (uint32, bool) {
	num, ok := v.m.byID[id]
	return num, ok
}

// Each visits live documents in ascending document number until fn
// returns false.
func (v *View) Each(fn func(num uint32, d *Doc) bool) {
	v.m.live.Iterate(func(num uint32) bool {
		return fn(num, v.m.docs[num])
	})
}

// Expand lists, in lexical order, the words starting with prefix that
// belong to field (field "" selects unprefixed words). At most limit terms
// are returned; more reports whether any were left out.
func (v *View) Expand(prefix, field string, limit int) (terms []string, more bool) {
	lex := v.m.lexicon
	i := sort.SearchStrings(lex, prefix)
	for ; i < len(lex) && strings.HasPrefix(lex[i], prefix); i++ {
		te := v.m.terms[lex[i]]
		if !matchesField(te, field) {
			continue
		}
		if limit > 0 && len(terms) == limit {
			return terms, true
		}
		terms = append(terms, lex[i])
	}
	return terms, false
}

// Words visits unprefixed words (field "") or a field's words, with their
// document frequency, in lexical order.
func (v *View) Words(field string, fn func(term string, df int) bool) {
	prefix := ""
	if field != "" {
		prefix = "X" + strings.ToUpper(field)
	}
	lex := v.m.lexicon
	for i := sort.SearchStrings(lex, prefix); i < len(lex) && strings.HasPrefix(lex[i], prefix); i++ {
		te := v.m.terms[lex[i]]
		if !matchesField(te, field) {
			continue
		}
		if !fn(lex[i], len(te.postings)) {
			return
		}
	}
}

func matchesField(te *termEntry, field string) bool {
	if field == "" {
		return te.kind == KindWord
	}
	return te.kind == KindField && te.field == field
}

// Lexicon is every indexed term in lexical order.
func (v *View) Lexicon() []string {
	return v.m.lexicon
}
