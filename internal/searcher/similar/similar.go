// Package similar builds "more like this" queries from a seed document's
// most significant words.
package similar

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
)

type Options struct {
	MaxTerms   int
	MinDocFreq int
}

// WeightedTerm is a seed word and its significance.
type WeightedTerm struct {
	Term   string
	Weight float64
}

// Terms ranks the seed's free-text words by wdf * log((N+1)/df), heaviest
// first, ties in lexical order. Words below MinDocFreq or absent from the
// index are skipped.
func Terms(v *index.View, seed *index.Doc, opts Options) []WeightedTerm {
	n := float64(v.DocCount())
	var out []WeightedTerm
	for term, hit := range seed.Terms {
		if hit.Kind != index.KindWord {
			continue
		}
		df := v.DocFreq(term)
		if df == 0 || df < opts.MinDocFreq {
			continue
		}
		out = append(out, WeightedTerm{Term: term, Weight: hit.Weight * math.Log((n+1)/float64(df))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})
	if opts.MaxTerms > 0 && len(out) > opts.MaxTerms {
		out = out[:opts.MaxTerms]
	}
	return out
}

// Query matches documents sharing any significant word with seed, minus
// the seed itself, restricted by additional when it is not nil.
func Query(v *index.View, seed *index.Doc, additional query.Query, opts Options) query.Query {
	weighted := Terms(v, seed, opts)
	terms := make([]query.Query, len(weighted))
	for i, wt := range weighted {
		terms[i] = query.Term{Term: wt.Term}
	}
	q := query.NewOr(terms...)
	if additional != nil {
		q = query.NewAnd(q, additional)
	}
	return query.NewAndNot(q, query.Term{Term: index.IDTermPrefix + seed.ID})
}
