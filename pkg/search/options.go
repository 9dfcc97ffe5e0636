package search

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/facet"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

// Options tune a single search.
type Options struct {
	// SortBy lists field names, "-" prefixed for descending order. When set
	// relevance is ignored.
	SortBy []string
	// Narrow holds query strings ANDed in as filters; they never affect
	// relevance.
	Narrow []string
	// Models restricts results to these models.
	Models      []string
	Facets      []string
	DateFacets  []facet.DateFacet
	QueryFacets []facet.QueryFacet
	Highlight   bool
	StartOffset int
	// Limit caps the page size; 0 returns every match up to
	// search.maxResults.
	Limit       int
	ResultClass ResultClass
	// Spelling requests a suggestion even when spelling.enabled is off.
	Spelling bool
	// SpellingQuery is corrected instead of the query itself.
	SpellingQuery string
}

func (o Options) facetRequest() facet.Request {
	return facet.Request{Fields: o.Facets, Dates: o.DateFacets, Queries: o.QueryFacets}
}

// MoreLikeThisOptions extend Options for similarity searches.
type MoreLikeThisOptions struct {
	Options
	// Additional restricts the similar documents further.
	Additional query.Query
	// LimitToRegisteredModels keeps only documents of registered models.
	LimitToRegisteredModels bool
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.With("component", "search-engine")
		}
	}
}

// WithMetrics records engine metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCache caches result pages in store, overriding cache.backend.
func WithCache(store cache.Store) Option {
	return func(e *Engine) {
		e.cacheStore = store
	}
}
