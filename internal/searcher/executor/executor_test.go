package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

type fixture struct {
	table *schema.Table
	idx   *index.MemoryIndex
	exec  *Executor
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	_, table, err := schema.Build([]schema.Definition{
		schema.DocumentField("text"),
		schema.Field("name", marshal.Text).Facet(),
		schema.Field("value", marshal.Long),
		schema.Field("pub_date", marshal.Date),
		schema.Field("slug", marshal.Text).Unindexed(),
	})
	require.NoError(t, err)

	idx := index.NewMemoryIndex()
	var batch []*index.Doc
	for i := 1; i <= n; i++ {
		model := "mockmodel"
		if i%2 == 0 {
			model = "anothermock"
		}
		d, err := index.Prepare(table, index.Document{
			Model: model,
			PK:    fmt.Sprint(i),
			Fields: map[string]any{
				"text":     fmt.Sprintf("Indexed!\n%d", i),
				"name":     fmt.Sprintf("david%d", i),
				"value":    i * 5 % 7,
				"pub_date": time.Date(2009, 2, 25, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -i),
			},
		})
		require.NoError(t, err)
		batch = append(batch, d)
	}
	idx.Update(batch)
	return &fixture{table: table, idx: idx, exec: New(table, nil)}
}

func (f *fixture) run(t *testing.T, req Request) *Page {
	t.Helper()
	var page *Page
	require.NoError(t, f.idx.View(func(v *index.View) error {
		var err error
		page, err = f.exec.Run(context.Background(), v, req)
		return err
	}))
	return page
}

func (f *fixture) parse(t *testing.T, s string) query.Query {
	t.Helper()
	var q query.Query
	require.NoError(t, f.idx.View(func(v *index.View) error {
		var err error
		q, err = parser.New(f.table, v, parser.Options{}).Parse(s)
		return err
	}))
	return q
}

func pks(page *Page) []string {
	out := make([]string, len(page.Hits))
	for i, h := range page.Hits {
		out[i] = h.PK
	}
	return out
}

func TestEmptyIndex(t *testing.T) {
	f := newFixture(t, 0)
	page := f.run(t, Request{})
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Hits)
	assert.NotNil(t, page.Hits)
}

func TestMatchAllOrdersByNaturalKey(t *testing.T) {
	f := newFixture(t, 12)
	page := f.run(t, Request{Query: query.MatchAll{}})
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}, pks(page))
}

func TestNoMatches(t *testing.T) {
	f := newFixture(t, 3)
	for _, q := range []query.Query{query.MatchNothing{}, query.Term{Term: "missing"}} {
		page := f.run(t, Request{Query: q})
		assert.Zero(t, page.Total)
		assert.Empty(t, page.Hits)
	}
}

func TestBooleanEvaluation(t *testing.T) {
	f := newFixture(t, 9)
	tests := []struct {
		q    string
		want []string
	}{
		{"indexed", []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}},
		{"david3", []string{"3"}},
		{"david3 OR david4", []string{"3", "4"}},
		{"indexed NOT david3", []string{"1", "2", "4", "5", "6", "7", "8", "9"}},
		{"david3 david4", []string{}},
		{`"indexed 7"`, []string{"7"}},
		{`"7 indexed"`, []string{}},
		{"name:david1..david3", []string{"1", "2", "3"}},
		{"value:>=5", []string{"1", "4", "8"}},
		{"value:<1", []string{"7"}},
		{"pub_date:..2009-02-20", []string{"5", "6", "7", "8", "9"}},
		{"id:4", []string{"4"}},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			page := f.run(t, Request{Query: f.parse(t, tt.q), SortBy: []string{"id"}})
			assert.Equal(t, tt.want, pks(page))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestNarrowAndModels(t *testing.T) {
	f := newFixture(t, 6)
	page := f.run(t, Request{
		Query:  query.MatchAll{},
		Narrow: []query.Query{f.parse(t, "name:david1..david4")},
	})
	assert.Equal(t, []string{"1", "2", "3", "4"}, pks(page))

	page = f.run(t, Request{Query: query.MatchAll{}, Models: []string{"anothermock"}})
	assert.Equal(t, []string{"2", "4", "6"}, pks(page))

	page = f.run(t, Request{Query: query.MatchAll{}, Models: []string{"unregistered"}})
	assert.Zero(t, page.Total)
}

func TestSortByReverses(t *testing.T) {
	f := newFixture(t, 6)
	// value = i*5%7 gives distinct values 5,3,1,6,4,2
	asc := pks(f.run(t, Request{Query: query.MatchAll{}, SortBy: []string{"value"}}))
	desc := pks(f.run(t, Request{Query: query.MatchAll{}, SortBy: []string{"-value"}}))
	assert.Equal(t, []string{"3", "6", "2", "5", "1", "4"}, asc)
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}

	byDate := pks(f.run(t, Request{Query: query.MatchAll{}, SortBy: []string{"pub_date"}}))
	assert.Equal(t, []string{"6", "5", "4", "3", "2", "1"}, byDate)

	byID := pks(f.run(t, Request{Query: query.MatchAll{}, SortBy: []string{"-id"}}))
	assert.Equal(t, []string{"6", "5", "4", "3", "2", "1"}, byID)

	// Equal keys keep insertion order in both directions, so the two
	// orders are exact reverses only when keys are distinct.
	f = newFixture(t, 8)
	asc = pks(f.run(t, Request{Query: query.MatchAll{}, SortBy: []string{"value"}}))
	desc = pks(f.run(t, Request{Query: query.MatchAll{}, SortBy: []string{"-value"}}))
	assert.Equal(t, []string{"7", "3", "6", "2", "5", "1", "8", "4"}, asc)
	assert.Equal(t, []string{"4", "1", "8", "5", "2", "6", "3", "7"}, desc)
}

func TestSortByUnknownField(t *testing.T) {
	f := newFixture(t, 2)
	for _, key := range []string{"colour", "-slug"} {
		err := f.idx.View(func(v *index.View) error {
			_, err := f.exec.Run(context.Background(), v, Request{SortBy: []string{key}})
			return err
		})
		assert.ErrorIs(t, err, apperrors.ErrUnknownField)
	}
}

func TestPaging(t *testing.T) {
	f := newFixture(t, 10)
	page := f.run(t, Request{Query: query.MatchAll{}, Offset: 2, Limit: 3})
	assert.Equal(t, 10, page.Total)
	assert.Equal(t, []string{"3", "4", "5"}, pks(page))

	page = f.run(t, Request{Query: query.MatchAll{}, Offset: 20})
	assert.Equal(t, 10, page.Total)
	assert.Empty(t, page.Hits)

	page = f.run(t, Request{Query: query.MatchAll{}, MaxResults: 4})
	assert.Len(t, page.Hits, 4)

	page = f.run(t, Request{Query: query.MatchAll{}, Limit: 8, MaxResults: 4})
	assert.Len(t, page.Hits, 4)
}

func TestRelevanceOrder(t *testing.T) {
	_, table, err := schema.Build([]schema.Definition{schema.DocumentField("text")})
	require.NoError(t, err)
	idx := index.NewMemoryIndex()
	var batch []*index.Doc
	for pk, text := range map[string]string{
		"1": "apple banana cherry",
		"2": "apple apple apple",
		"3": "banana cherry date",
	} {
		d, err := index.Prepare(table, index.Document{Model: "fruit", PK: pk, Fields: map[string]any{"text": text}})
		require.NoError(t, err)
		batch = append(batch, d)
	}
	idx.Update(batch)

	exec := New(table, nil)
	require.NoError(t, idx.View(func(v *index.View) error {
		page, err := exec.Run(context.Background(), v, Request{Query: query.Term{Term: "apple"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "1"}, pks(page))
		assert.Greater(t, page.Hits[0].Score, page.Hits[1].Score)
		return nil
	}))
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.idx.View(func(v *index.View) error {
		_, err := f.exec.Run(ctx, v, Request{Query: query.MatchAll{}})
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
}
