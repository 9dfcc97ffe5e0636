// Package executor runs query trees against a read view of the document
// store: boolean evaluation over roaring bitmaps, narrowing, model
// restriction, ordering and paging.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// Request describes one search against a view.
type Request struct {
	Query query.Query
	// Narrow trees restrict the matches without contributing to relevance.
	Narrow []query.Query
	// Models restricts matches to documents of these models when set.
	Models []string
	// SortBy lists field names, "-" prefixed for descending order. When
	// set, relevance is not computed.
	SortBy     []string
	Offset     int
	Limit      int
	MaxResults int
}

// Page is the outcome of a search: the total match count, the full match
// set for facets, and the requested window of ordered hits.
type Page struct {
	Total   int
	Matches *roaring.Bitmap
	Hits    []ranker.Hit
}

type Executor struct {
	table  *schema.Table
	logger *slog.Logger
}

func New(table *schema.Table, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		table:  table,
		logger: logger.With("component", "query-executor"),
	}
}

func (e *Executor) Run(ctx context.Context, v *index.View, req Request) (*Page, error) {
	keys, err := parseSortKeys(e.table, req.SortBy)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 || req.Limit < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "offset and limit must not be negative")
	}

	q := req.Query
	if q == nil {
		q = query.MatchAll{}
	}
	matches, err := Evaluate(ctx, v, q)
	if err != nil {
		return nil, fmt.Errorf("evaluating query: %w", err)
	}
	for _, narrow := range req.Narrow {
		if matches.IsEmpty() {
			break
		}
		bm, err := Evaluate(ctx, v, narrow)
		if err != nil {
			return nil, fmt.Errorf("evaluating narrow query %s: %w", narrow, err)
		}
		matches.And(bm)
	}
	if len(req.Models) > 0 {
		matches.And(v.ModelDocs(req.Models...))
	}

	page := &Page{Total: int(matches.GetCardinality()), Matches: matches, Hits: []ranker.Hit{}}
	if page.Total == 0 {
		return page, nil
	}

	hits, err := e.collect(ctx, v, q, matches, keys == nil)
	if err != nil {
		return nil, err
	}
	switch {
	case keys != nil:
		sortByKeys(v, hits, keys)
	case pageEnd(req.Offset, req.Limit, req.MaxResults) > 0:
		hits = ranker.TopK(hits, pageEnd(req.Offset, req.Limit, req.MaxResults))
	default:
		ranker.SortByRelevance(hits)
	}
	page.Hits = window(hits, req.Offset, req.Limit, req.MaxResults)

	e.logger.Debug("query executed",
		"query", q.String(),
		"matches", page.Total,
		"results", len(page.Hits),
		"sorted_by", strings.Join(req.SortBy, ","),
	)
	return page, nil
}

func (e *Executor) collect(ctx context.Context, v *index.View, q query.Query, matches *roaring.Bitmap, score bool) ([]ranker.Hit, error) {
	var scorer *ranker.Scorer
	if score {
		scorer = ranker.NewScorer(v, q)
	}
	hits := make([]ranker.Hit, 0, matches.GetCardinality())
	it := matches.Iterator()
	for n := 1; it.HasNext(); n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("collecting hits: %w", err)
			}
		}
		num := it.Next()
		d, ok := v.Doc(num)
		if !ok {
			continue
		}
		hit := ranker.Hit{Doc: num, PK: d.PK}
		if scorer != nil {
			hit.Score = scorer.Score(num)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// window applies offset and limit. A zero limit means everything, subject
// to maxResults when that is set.
// pageEnd is the number of ordered hits a window needs, or 0 when the
// window is unbounded.
func pageEnd(offset, limit, maxResults int) int {
	limit = effectiveLimit(limit, maxResults)
	if limit == 0 {
		return 0
	}
	return offset + limit
}

func effectiveLimit(limit, maxResults int) int {
	if maxResults > 0 && (limit == 0 || limit > maxResults) {
		return maxResults
	}
	return limit
}

func window(hits []ranker.Hit, offset, limit, maxResults int) []ranker.Hit {
	limit = effectiveLimit(limit, maxResults)
	if offset >= len(hits) {
		return []ranker.Hit{}
	}
	hits = hits[offset:]
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
