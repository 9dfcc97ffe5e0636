package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/facet"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/similar"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/tracing"
)

// Search runs a query tree. A nil tree matches every document.
func (e *Engine) Search(ctx context.Context, q query.Query, opts Options) (*Response, error) {
	return e.run(ctx, "search", opts, "", func(*index.View, *schema.Table, *parser.Parser) (query.Query, error) {
		return q, nil
	})
}

// SearchString parses s and runs it. A blank string matches every
// document.
func (e *Engine) SearchString(ctx context.Context, s string, opts Options) (*Response, error) {
	return e.run(ctx, "search", opts, s, func(_ *index.View, _ *schema.Table, p *parser.Parser) (query.Query, error) {
		return p.Parse(s)
	})
}

// MoreLikeThis finds documents similar to doc, an instance of model. The
// seed is looked up in the index, or prepared from its fields when it has
// not been indexed, and is never part of the results.
func (e *Engine) MoreLikeThis(ctx context.Context, model string, doc Document, opts MoreLikeThisOptions) (*Response, error) {
	if opts.LimitToRegisteredModels {
		registered := e.Models()
		if len(opts.Models) == 0 {
			opts.Models = registered
		} else {
			opts.Models = intersect(opts.Models, registered)
			if len(opts.Models) == 0 {
				return emptyResponse(), nil
			}
		}
	}
	simOpts := similar.Options{
		MaxTerms:   e.cfg.MoreLikeThis.MaxTerms,
		MinDocFreq: e.cfg.MoreLikeThis.MinDocFreq,
	}
	return e.run(ctx, "more_like_this", opts.Options, "", func(v *index.View, table *schema.Table, _ *parser.Parser) (query.Query, error) {
		id := index.GlobalID(model, doc.PK)
		var seed *index.Doc
		if num, ok := v.Lookup(id); ok {
			seed, _ = v.Doc(num)
		}
		if seed == nil {
			prepared, err := index.Prepare(table, index.Document{Model: model, PK: doc.PK, Fields: doc.Fields})
			if err != nil {
				return nil, fmt.Errorf("preparing seed %s: %w", id, err)
			}
			seed = prepared
		}
		return similar.Query(v, seed, opts.Additional, simOpts), nil
	})
}

// cachedPage is the cacheable part of an executor.Page. Document numbers
// are only meaningful for the generation in the cache key.
type cachedPage struct {
	Total   int          `json:"total"`
	Hits    []ranker.Hit `json:"hits"`
	Matches []byte       `json:"matches"`
}

type buildFunc func(v *index.View, table *schema.Table, p *parser.Parser) (query.Query, error)

func (e *Engine) run(ctx context.Context, op string, opts Options, raw string, build buildFunc) (*Response, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "search-engine", "operation", op)

	isChild := tracing.SpanFromContext(ctx) != nil
	ctx, span := tracing.StartChildSpan(ctx, op)

	var resp *Response
	err := resilience.WithTimeout(ctx, e.cfg.Search.Timeout, op, func(ctx context.Context) error {
		var err error
		resp, err = e.execute(ctx, log, opts, raw, build)
		return err
	})
	span.End()
	if !isChild {
		span.Log(log)
	}

	if err != nil {
		e.countQuery("error", op, start)
		log.Warn("search failed", "error", err, "kind", apperrors.Kind(err))
		return nil, err
	}
	if resp.Hits == 0 {
		e.countQuery("zero_result", op, start)
	} else {
		e.countQuery("hit", op, start)
	}
	if e.metrics != nil {
		e.metrics.SearchResultsCount.Observe(float64(resp.Hits))
	}
	log.Debug("search completed",
		"hits", resp.Hits,
		"results", len(resp.Results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (e *Engine) execute(ctx context.Context, log *slog.Logger, opts Options, raw string, build buildFunc) (*Response, error) {
	_, table := e.Schema()
	if table == nil {
		return emptyResponse(), nil
	}

	var resp *Response
	err := e.idx.View(func(v *index.View) error {
		p := e.parser(table, v)

		_, parseSpan := tracing.StartChildSpan(ctx, "parse")
		q, err := build(v, table, p)
		if err != nil {
			parseSpan.End()
			return err
		}
		if q == nil {
			q = query.MatchAll{}
		}
		narrow := make([]query.Query, 0, len(opts.Narrow))
		for _, s := range opts.Narrow {
			nq, err := p.Parse(s)
			if err != nil {
				parseSpan.End()
				return fmt.Errorf("narrow query %q: %w", s, err)
			}
			narrow = append(narrow, nq)
		}
		parseSpan.SetAttr("query", query.Text(q))
		parseSpan.End()

		execCtx, execSpan := tracing.StartChildSpan(ctx, "execute")
		page, err := e.page(execCtx, v, table, executor.Request{
			Query:      q,
			Narrow:     narrow,
			Models:     opts.Models,
			SortBy:     opts.SortBy,
			Offset:     opts.StartOffset,
			Limit:      opts.Limit,
			MaxResults: e.cfg.Search.MaxResults,
		}, log)
		execSpan.End()
		if err != nil {
			return err
		}

		resp = &Response{Hits: page.Total, Results: make([]Hit, 0, len(page.Hits))}

		if req := opts.facetRequest(); page.Total > 0 && !req.Empty() {
			facetCtx, facetSpan := tracing.StartChildSpan(ctx, "facets")
			counter := facet.NewCounter(table, e.cfg.Search.FacetConcurrency, e.metrics, log)
			resp.Facets, err = counter.Count(facetCtx, v, p, page.Matches, req)
			facetSpan.End()
			if err != nil {
				return err
			}
		}

		if e.cfg.Spelling.Enabled || opts.Spelling {
			_, spellSpan := tracing.StartChildSpan(ctx, "spelling")
			if text := spellingText(opts, raw, q); text != "" {
				resp.SpellingSuggestion = e.speller.Suggest(v, table, text)
			}
			spellSpan.End()
		}

		_, hydrateSpan := tracing.StartChildSpan(ctx, "hydrate")
		resp.Results = e.hydrate(v, table, q, opts, page.Hits)
		hydrateSpan.End()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// page runs the executor, going through the result cache when one is
// configured.
func (e *Engine) page(ctx context.Context, v *index.View, table *schema.Table, req executor.Request, log *slog.Logger) (*executor.Page, error) {
	exec := executor.New(table, log)
	if e.cache == nil {
		return exec.Run(ctx, v, req)
	}

	parts := []string{
		e.id,
		strconv.FormatUint(v.Generation(), 10),
		query.Text(req.Query),
		strings.Join(req.Models, ","),
		strings.Join(req.SortBy, ","),
		strconv.Itoa(req.Offset),
		strconv.Itoa(req.Limit),
		strconv.Itoa(req.MaxResults),
	}
	for _, n := range req.Narrow {
		parts = append(parts, query.Text(n))
	}
	cp, hit, err := cache.GetOrCompute(ctx, e.cache, cache.Key(parts...), func() (cachedPage, error) {
		page, err := exec.Run(ctx, v, req)
		if err != nil {
			return cachedPage{}, err
		}
		matches, err := page.Matches.MarshalBinary()
		if err != nil {
			return cachedPage{}, fmt.Errorf("encoding match set: %w", err)
		}
		return cachedPage{Total: page.Total, Hits: page.Hits, Matches: matches}, nil
	})
	if err != nil {
		return nil, err
	}
	matches := roaring.New()
	if err := matches.UnmarshalBinary(cp.Matches); err != nil {
		log.Warn("discarding undecodable cached page", "error", err)
		return exec.Run(ctx, v, req)
	}
	if hit {
		log.Debug("result page served from cache", "matches", cp.Total)
	}
	hits := cp.Hits
	if hits == nil {
		hits = []ranker.Hit{}
	}
	return &executor.Page{Total: cp.Total, Matches: matches, Hits: hits}, nil
}

func (e *Engine) hydrate(v *index.View, table *schema.Table, q query.Query, opts Options, hits []ranker.Hit) []Hit {
	class := opts.ResultClass
	if class == nil {
		class = defaultResultClass
	}
	var hl *highlight.Highlighter
	if opts.Highlight {
		hl = highlight.New(q, e.cfg.Search.HighlightPreTag, e.cfg.Search.HighlightPostTag)
	}

	out := make([]Hit, 0, len(hits))
	for i, h := range hits {
		d, ok := v.Doc(h.Doc)
		if !ok {
			continue
		}
		r := Result{
			Model:  d.Model,
			PK:     d.PK,
			ID:     d.ID,
			Score:  h.Score,
			Rank:   opts.StartOffset + i + 1,
			Fields: make(map[string]any, len(d.Fields)),
		}
		for name, value := range d.Fields {
			def, ok := table.Definition(name)
			if !ok || !def.Stored {
				continue
			}
			r.Fields[name] = value
			if hl == nil || def.Type != marshal.Text {
				continue
			}
			if text, ok := value.(string); ok {
				if r.Highlighted == nil {
					r.Highlighted = make(map[string]string)
				}
				r.Highlighted[name] = hl.Field(def, text)
			}
		}
		out = append(out, class(r))
	}
	return out
}

// spellingText picks what to correct: the explicit spelling query, else
// the raw query string, else the free-text words of the tree.
func spellingText(opts Options, raw string, q query.Query) string {
	if opts.SpellingQuery != "" {
		return opts.SpellingQuery
	}
	if strings.TrimSpace(raw) != "" {
		return raw
	}
	seen := make(map[string]struct{})
	var words []string
	for _, t := range query.Terms(q, false) {
		if !index.IsWord(t) {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		words = append(words, t)
	}
	return strings.Join(words, " ")
}

func (e *Engine) countQuery(result, op string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(result).Inc()
	e.metrics.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func emptyResponse() *Response {
	return &Response{Results: []Hit{}}
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
