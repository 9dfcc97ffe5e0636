package similar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
)

func build(t *testing.T) (*schema.Table, *index.MemoryIndex, []*index.Doc) {
	t.Helper()
	_, table, err := schema.Build([]schema.Definition{schema.DocumentField("text")})
	require.NoError(t, err)
	var docs []*index.Doc
	for _, doc := range []index.Document{
		{Model: "post", PK: "1", Fields: map[string]any{"text": "golang search engine golang"}},
		{Model: "post", PK: "2", Fields: map[string]any{"text": "search engine ranking"}},
		{Model: "post", PK: "3", Fields: map[string]any{"text": "golang concurrency"}},
		{Model: "post", PK: "4", Fields: map[string]any{"text": "cooking pasta"}},
	} {
		d, err := index.Prepare(table, doc)
		require.NoError(t, err)
		docs = append(docs, d)
	}
	idx := index.NewMemoryIndex()
	idx.Update(docs)
	return table, idx, docs
}

func TestTermsRanksBySignificance(t *testing.T) {
	_, idx, docs := build(t)
	require.NoError(t, idx.View(func(v *index.View) error {
		terms := Terms(v, docs[0], Options{})
		require.Len(t, terms, 3)
		// golang occurs twice in the seed
		assert.Equal(t, "golang", terms[0].Term)
		assert.Equal(t, "engine", terms[1].Term)
		assert.Equal(t, "search", terms[2].Term)

		assert.Len(t, Terms(v, docs[0], Options{MaxTerms: 1}), 1)
		assert.Empty(t, Terms(v, docs[0], Options{MinDocFreq: 3}))
		return nil
	}))
}

func TestQueryExcludesSeed(t *testing.T) {
	_, idx, docs := build(t)
	require.NoError(t, idx.View(func(v *index.View) error {
		q := Query(v, docs[0], nil, Options{MaxTerms: 1})
		assert.Equal(t, "Query((golang AND_NOT Qpost.1))", query.Text(q))

		q = Query(v, docs[0], query.Term{Term: "concurrency"}, Options{MaxTerms: 1})
		assert.Equal(t, "Query(((golang AND concurrency) AND_NOT Qpost.1))", query.Text(q))
		return nil
	}))
}

func TestQueryForUnknownWords(t *testing.T) {
	_, idx, _ := build(t)
	_, table, err := schema.Build([]schema.Definition{schema.DocumentField("text")})
	require.NoError(t, err)
	seed, err := index.Prepare(table, index.Document{Model: "post", PK: "9", Fields: map[string]any{"text": "nothing shared"}})
	require.NoError(t, err)
	require.NoError(t, idx.View(func(v *index.View) error {
		assert.Equal(t, "Query()", query.Text(Query(v, seed, nil, Options{})))
		return nil
	}))
}
