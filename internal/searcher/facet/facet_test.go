package facet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

func setup(t *testing.T) (*schema.Table, *index.MemoryIndex) {
	t.Helper()
	_, table, err := schema.Build([]schema.Definition{
		schema.DocumentField("text"),
		schema.Field("name", marshal.Text).Facet(),
		schema.Field("flag", marshal.Boolean),
		schema.Field("sites", marshal.Integer).Multi(),
		schema.Field("pub_date", marshal.Date),
		schema.Field("url", marshal.Text),
	})
	require.NoError(t, err)

	idx := index.NewMemoryIndex()
	var batch []*index.Doc
	for i := 1; i <= 3; i++ {
		d, err := index.Prepare(table, index.Document{
			Model: "mockmodel",
			PK:    fmt.Sprint(i),
			Fields: map[string]any{
				"text":     fmt.Sprintf("Indexed!\n%d", i),
				"name":     fmt.Sprintf("david%d", i),
				"flag":     i%2 == 1,
				"sites":    []int{i, 2 * i, 3 * i},
				"pub_date": time.Date(2009, 2, 25, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -i),
				"url":      fmt.Sprintf("http://example.com/%d/", i),
			},
		})
		require.NoError(t, err)
		batch = append(batch, d)
	}
	idx.Update(batch)
	return table, idx
}

func count(t *testing.T, req Request, matches func(v *index.View) *roaring.Bitmap) (*Result, error) {
	t.Helper()
	table, idx := setup(t)
	counter := NewCounter(table, 2, metrics.New(prometheus.NewRegistry()), nil)
	var res *Result
	err := idx.View(func(v *index.View) error {
		var err error
		res, err = counter.Count(context.Background(), v, parser.New(table, v, parser.Options{}), matches(v), req)
		return err
	})
	return res, err
}

func all(v *index.View) *roaring.Bitmap { return v.All().Clone() }

func TestFieldFacets(t *testing.T) {
	res, err := count(t, Request{Fields: []string{"name", "flag", "sites"}}, all)
	require.NoError(t, err)

	assert.Equal(t, []Count{{"david1", 1}, {"david2", 1}, {"david3", 1}}, res.Fields["name"])
	assert.Equal(t, []Count{{false, 1}, {true, 2}}, res.Fields["flag"])
	assert.Equal(t, []Count{
		{int64(1), 1}, {int64(2), 2}, {int64(3), 2}, {int64(4), 1}, {int64(6), 2}, {int64(9), 1},
	}, res.Fields["sites"])
}

func TestFieldFacetsOnSubset(t *testing.T) {
	res, err := count(t, Request{Fields: []string{"name"}}, func(v *index.View) *roaring.Bitmap {
		return roaring.BitmapOf(2)
	})
	require.NoError(t, err)
	assert.Equal(t, []Count{{"david3", 1}}, res.Fields["name"])

	res, err = count(t, Request{Fields: []string{"name"}}, func(v *index.View) *roaring.Bitmap {
		return roaring.New()
	})
	require.NoError(t, err)
	assert.Empty(t, res.Fields["name"])
}

func TestDateFacets(t *testing.T) {
	res, err := count(t, Request{Dates: []DateFacet{{
		Field: "pub_date",
		Start: time.Date(2008, 10, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2009, 3, 26, 0, 0, 0, 0, time.UTC),
		GapBy: "month",
	}}}, all)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2009-02-26T00:00:00 0",
		"2009-01-26T00:00:00 3",
		"2008-12-26T00:00:00 0",
		"2008-11-26T00:00:00 0",
		"2008-10-26T00:00:00 0",
	}, labels(res.Dates["pub_date"]))

	res, err = count(t, Request{Dates: []DateFacet{{
		Field:     "pub_date",
		Start:     time.Date(2009, 2, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2009, 3, 15, 0, 0, 0, 0, time.UTC),
		GapBy:     "day",
		GapAmount: 15,
	}}}, all)
	require.NoError(t, err)
	buckets := res.Dates["pub_date"]
	assert.Equal(t, []string{
		"2009-03-03T00:00:00 0",
		"2009-02-16T00:00:00 3",
		"2009-02-01T00:00:00 0",
	}, labels(buckets))
	assert.Equal(t, time.Date(2009, 3, 15, 0, 0, 0, 0, time.UTC), buckets[0].End)
}

func labels(buckets []DateBucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = fmt.Sprintf("%s %d", b.Label, b.Count)
	}
	return out
}

func TestQueryFacets(t *testing.T) {
	res, err := count(t, Request{Queries: []QueryFacet{{Field: "name", Value: "da*"}}}, all)
	require.NoError(t, err)
	assert.Equal(t, QueryCount{Query: "da*", Count: 3}, res.Queries["name"])

	res, err = count(t, Request{Queries: []QueryFacet{{Field: "name", Value: "david2"}}}, func(v *index.View) *roaring.Bitmap {
		return roaring.BitmapOf(0, 2)
	})
	require.NoError(t, err)
	assert.Equal(t, QueryCount{Query: "david2", Count: 0}, res.Queries["name"])
}

func TestFacetValidation(t *testing.T) {
	day := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown field", Request{Fields: []string{"colour"}}, apperrors.ErrUnknownField},
		{"text not faceted", Request{Fields: []string{"url"}}, apperrors.ErrUnknownField},
		{"date on non-date", Request{Dates: []DateFacet{{Field: "name", Start: day, End: day.AddDate(0, 1, 0), GapBy: "day"}}}, apperrors.ErrTypeMismatch},
		{"bad gap", Request{Dates: []DateFacet{{Field: "pub_date", Start: day, End: day.AddDate(0, 1, 0), GapBy: "week"}}}, apperrors.ErrInvalidInput},
		{"inverted range", Request{Dates: []DateFacet{{Field: "pub_date", Start: day, End: day, GapBy: "day"}}}, apperrors.ErrInvalidInput},
		{"unknown query field", Request{Queries: []QueryFacet{{Field: "colour", Value: "red"}}}, apperrors.ErrUnknownField},
		{"malformed query facet", Request{Queries: []QueryFacet{{Field: "name", Value: "(x"}}}, apperrors.ErrMalformedQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := count(t, tt.req, all)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
