// Package facet counts matches per field value, per date bucket and per
// sub-query. Facet groups are computed concurrently over one read view.
package facet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

// Count is one distinct value of a field facet.
type Count struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// QueryCount is the outcome of a query facet.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// QueryFacet asks how many matches also match "Field:Value".
type QueryFacet struct {
	Field string
	Value string
}

type Request struct {
	Fields  []string
	Dates   []DateFacet
	Queries []QueryFacet
}

func (r Request) Empty() bool {
	return len(r.Fields) == 0 && len(r.Dates) == 0 && len(r.Queries) == 0
}

// Result holds field facets in first-seen value order, date buckets newest
// first, and query facets keyed by field.
type Result struct {
	Fields  map[string][]Count      `json:"fields"`
	Dates   map[string][]DateBucket `json:"dates"`
	Queries map[string]QueryCount   `json:"queries"`
}

type Counter struct {
	table       *schema.Table
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewCounter(table *schema.Table, concurrency int, m *metrics.Metrics, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{
		table:       table,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger.With("component", "facet-counter"),
	}
}

// Count computes every facet group in req over matches. The parser is used
// for query facets and must be bound to the same view.
func (c *Counter) Count(ctx context.Context, v *index.View, p *parser.Parser, matches *roaring.Bitmap, req Request) (*Result, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	fields := make([][]Count, len(req.Fields))
	dates := make([][]DateBucket, len(req.Dates))
	queries := make([]QueryCount, len(req.Queries))

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, field := range req.Fields {
		g.Go(func() error {
			defer c.observe("field", time.Now())
			counts, err := c.fieldFacet(gctx, v, matches, field)
			if err != nil {
				return fmt.Errorf("field facet %q: %w", field, err)
			}
			fields[i] = counts
			return nil
		})
	}
	for i, df := range req.Dates {
		g.Go(func() error {
			defer c.observe("date", time.Now())
			buckets, err := c.dateFacet(gctx, v, matches, df)
			if err != nil {
				return fmt.Errorf("date facet %q: %w", df.Field, err)
			}
			dates[i] = buckets
			return nil
		})
	}
	for i, qf := range req.Queries {
		g.Go(func() error {
			defer c.observe("query", time.Now())
			q, err := p.Parse(qf.Field + ":" + qf.Value)
			if err != nil {
				return fmt.Errorf("query facet %q: %w", qf.Field, err)
			}
			bm, err := executor.Evaluate(gctx, v, q)
			if err != nil {
				return fmt.Errorf("query facet %q: %w", qf.Field, err)
			}
			queries[i] = QueryCount{Query: qf.Value, Count: int(bm.AndCardinality(matches))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Fields:  make(map[string][]Count, len(req.Fields)),
		Dates:   make(map[string][]DateBucket, len(req.Dates)),
		Queries: make(map[string]QueryCount, len(req.Queries)),
	}
	for i, field := range req.Fields {
		res.Fields[field] = fields[i]
	}
	for i, df := range req.Dates {
		res.Dates[df.Field] = dates[i]
	}
	for i, qf := range req.Queries {
		res.Queries[qf.Field] = queries[i]
	}
	c.logger.Debug("facets computed",
		"fields", len(req.Fields),
		"dates", len(req.Dates),
		"queries", len(req.Queries),
		"matches", matches.GetCardinality(),
	)
	return res, nil
}

func (c *Counter) observe(kind string, start time.Time) {
	if c.metrics != nil {
		c.metrics.FacetDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func (c *Counter) fieldFacet(ctx context.Context, v *index.View, matches *roaring.Bitmap, field string) ([]Count, error) {
	def, _ := c.table.Definition(field)
	var counts []Count
	position := make(map[string]int)
	it := matches.Iterator()
	for n := 1; it.HasNext(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d, ok := v.Doc(it.Next())
		if !ok {
			continue
		}
		for _, enc := range d.Value(field) {
			if i, seen := position[enc]; seen {
				counts[i].Count++
				continue
			}
			value, err := unmarshalOne(def, enc)
			if err != nil {
				return nil, err
			}
			position[enc] = len(counts)
			counts = append(counts, Count{Value: value, Count: 1})
		}
	}
	if counts == nil {
		counts = []Count{}
	}
	if def.Type == marshal.Boolean {
		// false before true; every other type keeps first-seen order
		sort.SliceStable(counts, func(i, j int) bool {
			a, _ := counts[i].Value.(bool)
			b, _ := counts[j].Value.(bool)
			return !a && b
		})
	}
	return counts, nil
}

// unmarshalOne decodes a single value, also for multi-valued fields.
func unmarshalOne(def schema.Definition, enc string) (any, error) {
	def.MultiValued = false
	return def.Unmarshal([]string{enc})
}

func (c *Counter) validate(req Request) error {
	for _, field := range req.Fields {
		def, ok := c.table.Definition(field)
		if !ok || !def.Facetable() {
			return apperrors.UnknownField(field)
		}
	}
	for _, df := range req.Dates {
		def, ok := c.table.Definition(df.Field)
		if !ok || !def.Indexed {
			return apperrors.UnknownField(df.Field)
		}
		if def.Type != marshal.Date {
			return apperrors.TypeMismatch(df.Field, "date facets need a date field, got %s", def.Type)
		}
		if err := df.validate(); err != nil {
			return err
		}
	}
	for _, qf := range req.Queries {
		if _, ok := c.table.Column(qf.Field); !ok {
			return apperrors.UnknownField(qf.Field)
		}
	}
	return nil
}
