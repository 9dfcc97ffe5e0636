// Package highlight wraps the words of stored text that match a query in
// emphasis markers.
package highlight

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
)

type Highlighter struct {
	pre, post string
	terms     map[string]struct{}
}

// New collects the positive terms of q. Excluded terms are never marked.
func New(q query.Query, preTag, postTag string) *Highlighter {
	h := &Highlighter{pre: preTag, post: postTag, terms: make(map[string]struct{})}
	for _, t := range query.Terms(q, false) {
		h.terms[t] = struct{}{}
	}
	return h
}

// Empty reports whether no word can ever be marked.
func (h *Highlighter) Empty() bool {
	return len(h.terms) == 0
}

// Field marks the words of text that the query matches either as free text
// or scoped to def's field. Matching ignores case; the text keeps its
// original spelling and punctuation.
func (h *Highlighter) Field(def schema.Definition, text string) string {
	if h.Empty() || text == "" {
		return text
	}
	prefix := def.Prefix()
	var b strings.Builder
	b.Grow(len(text))
	start := -1
	flush := func(end int) {
		word := text[start:end]
		if h.matches(prefix, strings.ToLower(word)) {
			b.WriteString(h.pre)
			b.WriteString(word)
			b.WriteString(h.post)
		} else {
			b.WriteString(word)
		}
		start = -1
	}
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		flush(len(text))
	}
	return b.String()
}

func (h *Highlighter) matches(prefix, word string) bool {
	stem := tokenizer.Stem(word)
	for _, term := range []string{
		word,
		index.StemPrefix + stem,
		prefix + word,
		index.StemPrefix + prefix + stem,
	} {
		if _, ok := h.terms[term]; ok {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
