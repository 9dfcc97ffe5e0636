package search

import (
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/facet"
)

// Hit is one entry of a result list. Result is the default; Options.
// ResultClass substitutes another projection.
type Hit interface {
	GlobalID() string
}

// Result is a read-only projection of a matched document.
type Result struct {
	Model string  `json:"model"`
	PK    string  `json:"pk"`
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	// Rank is the 1-based position in the full ordering.
	Rank        int               `json:"rank"`
	Highlighted map[string]string `json:"highlighted,omitempty"`
	Fields      map[string]any    `json:"fields,omitempty"`
}

func (r Result) GlobalID() string {
	return r.ID
}

// ResultClass builds the Hit handed back for each Result.
type ResultClass func(Result) Hit

func defaultResultClass(r Result) Hit {
	return r
}

// Response is the outcome of a search. Facets is nil unless facets were
// requested and something matched.
type Response struct {
	Hits               int           `json:"hits"`
	Results            []Hit         `json:"results"`
	Facets             *facet.Result `json:"facets,omitempty"`
	SpellingSuggestion string        `json:"spelling_suggestion,omitempty"`
}

// PKs lists the primary keys of the results in order.
func (r *Response) PKs() []string {
	out := make([]string, 0, len(r.Results))
	for _, h := range r.Results {
		switch x := h.(type) {
		case Result:
			out = append(out, x.PK)
		case interface{ PrimaryKey() string }:
			out = append(out, x.PrimaryKey())
		default:
			out = append(out, h.GlobalID())
		}
	}
	return out
}
