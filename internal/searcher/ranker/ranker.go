// Package ranker scores matched documents with BM25 and orders them.
package ranker

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Hit is a matched document with its relevance.
type Hit struct {
	Doc   uint32
	PK    string
	Score float64
}

// Scorer computes BM25 over the positive terms of a query tree. The
// children of a Synonym node count as one term whose frequency is the sum
// of theirs.
type Scorer struct {
	view   *index.View
	groups []group
	params RankParams
}

type RankParams struct {
	TotalDocs    int64
	AvgDocLength float64
}

type group struct {
	terms []string
	idf   float64
}

func NewScorer(v *index.View, q query.Query) *Scorer {
	s := &Scorer{
		view: v,
		params: RankParams{
			TotalDocs:    int64(v.DocCount()),
			AvgDocLength: v.AvgLength(),
		},
	}
	for _, terms := range scoringGroups(q) {
		df := docFreq(v, terms)
		if df == 0 {
			continue
		}
		s.groups = append(s.groups, group{terms: terms, idf: computeIDF(s.params.TotalDocs, int64(df))})
	}
	return s
}

// Score is the rounded BM25 score of doc; 0 when no scoring term matches.
func (s *Scorer) Score(doc uint32) float64 {
	d, ok := s.view.Doc(doc)
	if !ok || len(s.groups) == 0 {
		return 0
	}
	var score float64
	for _, g := range s.groups {
		var tf float64
		for _, term := range g.terms {
			if p, ok := s.view.Posting(term, doc); ok {
				tf += p.Weight
			}
		}
		if tf == 0 {
			continue
		}
		score += g.idf * computeTFNorm(tf, d.Length, s.params.AvgDocLength)
	}
	return math.Round(score*10000) / 10000
}

func docFreq(v *index.View, terms []string) int {
	if len(terms) == 1 {
		return v.DocFreq(terms[0])
	}
	union := roaring.New()
	for _, term := range terms {
		if bm := v.Docs(term); bm != nil {
			union.Or(bm)
		}
	}
	return int(union.GetCardinality())
}

// scoringGroups collects the term groups that contribute relevance.
// Excluded branches of AndNot never score.
func scoringGroups(q query.Query) [][]string {
	var groups [][]string
	var walk func(query.Query)
	walk = func(q query.Query) {
		switch x := q.(type) {
		case query.Term:
			groups = append(groups, []string{x.Term})
		case query.Phrase:
			for _, t := range x.Terms {
				groups = append(groups, []string{t})
			}
		case query.Bool:
			switch x.Op {
			case query.Synonym:
				if terms := query.Terms(x, false); len(terms) > 0 {
					groups = append(groups, terms)
				}
			case query.AndNot:
				walk(x.Children[0])
			default:
				for _, c := range x.Children {
					walk(c)
				}
			}
		}
	}
	walk(q)
	return groups
}

// SortByRelevance orders hits by descending score, then natural primary
// key order, then document number.
func SortByRelevance(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		return better(hits[i], hits[j])
	})
}

func better(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if c := CompareNatural(a.PK, b.PK); c != 0 {
		return c < 0
	}
	return a.Doc < b.Doc
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
