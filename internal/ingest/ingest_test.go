package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/search"
)

const updateEvent = `{
	"op": "update",
	"model": "article",
	"fields": [
		{"name": "body", "type": "text", "document": true},
		{"name": "title", "type": "text", "boost": 2},
		{"name": "views", "type": "integer"},
		{"name": "published", "type": "date"},
		{"name": "tags", "type": "text", "multiValued": true, "faceted": true},
		{"name": "secret", "type": "text", "stored": false}
	],
	"documents": [
		{"pk": "1", "fields": {"body": "indexing events from kafka", "title": "Kafka", "views": 12, "published": "2009-02-24", "tags": ["go", "kafka"]}},
		{"pk": "2", "fields": {"body": "searching indexed events", "title": "Search", "views": 3, "published": "2009-02-25T10:00:00Z", "tags": "go", "secret": "hidden"}}
	]
}`

func newEngine(t *testing.T) *search.Engine {
	t.Helper()
	cfg := *config.Default()
	cfg.Engine.DataDir = t.TempDir()
	e, err := search.New(cfg)
	require.NoError(t, err)
	return e
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"update", Event{Op: OpUpdate, Model: "m", Fields: []FieldSpec{{Name: "a"}}}, false},
		{"update without model", Event{Op: OpUpdate, Fields: []FieldSpec{{Name: "a"}}}, true},
		{"update without fields", Event{Op: OpUpdate, Model: "m"}, true},
		{"update without pk", Event{Op: OpUpdate, Model: "m", Fields: []FieldSpec{{Name: "a"}}, Documents: []DocumentPayload{{}}}, true},
		{"remove", Event{Op: OpRemove, Model: "m", PK: "1"}, false},
		{"remove without pk", Event{Op: OpRemove, Model: "m"}, true},
		{"clear all", Event{Op: OpClear}, false},
		{"unknown op", Event{Op: "upsert"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.ev)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.True(t, kafka.Permanent(err))
		})
	}
}

func TestFieldSpecDefaults(t *testing.T) {
	no := false
	d := FieldSpec{Name: "a", Type: marshal.Integer, Stored: &no}.Definition()
	assert.True(t, d.Indexed)
	assert.False(t, d.Stored)
	assert.Equal(t, 1.0, d.Boost)

	def := schema.Field("tags", marshal.Text).Multi().Facet().Unindexed()
	assert.Equal(t, def, SpecOf(def).Definition())
}

func TestDocumentsCoercesJSONValues(t *testing.T) {
	ev, err := kafka.DecodeJSON[Event]([]byte(updateEvent))
	require.NoError(t, err)

	docs, err := Documents(ev.Descriptor(), ev.Documents)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, int64(12), docs[0].Fields["views"])
	assert.Equal(t, time.Date(2009, 2, 24, 0, 0, 0, 0, time.UTC), docs[0].Fields["published"])
	assert.Equal(t, []any{"go", "kafka"}, docs[0].Fields["tags"])
	assert.Equal(t, []any{"go"}, docs[1].Fields["tags"])
	assert.Equal(t, time.Date(2009, 2, 25, 10, 0, 0, 0, time.UTC), docs[1].Fields["published"])
}

func TestDocumentsRejectsBadValues(t *testing.T) {
	desc := search.Descriptor{Model: "m", Fields: []schema.Definition{
		schema.Field("n", marshal.Integer),
		schema.Field("d", marshal.Date),
		schema.Field("s", marshal.Text),
	}}
	for name, raw := range map[string]any{
		"n": json.Number("1.5"),
		"d": "yesterday",
		"s": []any{"a", "b"},
	} {
		_, err := Documents(desc, []DocumentPayload{{PK: "1", Fields: map[string]any{name: raw}}})
		assert.ErrorIs(t, err, apperrors.ErrTypeMismatch, name)
	}
}

func TestHandleMessageAppliesEvents(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	handle := HandleMessage(e)

	require.NoError(t, handle(ctx, []byte("article"), []byte(updateEvent)))
	assert.Equal(t, 2, e.DocumentCount())

	resp, err := e.SearchString(ctx, "views:>=10", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, resp.PKs())

	resp, err = e.SearchString(ctx, "events", search.Options{Facets: []string{"tags"}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Hits)
	assert.NotContains(t, resp.Results[1].(search.Result).Fields, "secret")

	require.NoError(t, handle(ctx, nil, []byte(`{"op":"remove","model":"article","pk":"1"}`)))
	assert.Equal(t, 1, e.DocumentCount())

	require.NoError(t, handle(ctx, nil, []byte(`{"op":"clear","models":["article"]}`)))
	assert.Equal(t, 0, e.DocumentCount())
}

func TestHandleMessagePermanentFailures(t *testing.T) {
	e := newEngine(t)
	handle := HandleMessage(e)
	ctx := context.Background()

	for _, msg := range []string{
		`not json`,
		`{"op":"upsert"}`,
		`{"op":"update","model":"m","fields":[{"name":"n","type":"integer"}],"documents":[{"pk":"1","fields":{"n":"x"}}]}`,
		`{"op":"update","model":"m","fields":[{"name":"id","type":"integer"}],"documents":[]}`,
	} {
		err := handle(ctx, nil, []byte(msg))
		require.Error(t, err, msg)
		assert.True(t, kafka.Permanent(err), msg)
	}
	assert.Equal(t, 0, e.DocumentCount())
}

type capturingProducer struct {
	events []kafka.Event
}

func (p *capturingProducer) Publish(_ context.Context, ev kafka.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *capturingProducer) PublishBatch(_ context.Context, evs []kafka.Event) error {
	p.events = append(p.events, evs...)
	return nil
}

func TestPublisherEventsReplayIntoEngine(t *testing.T) {
	ctx := context.Background()
	prod := &capturingProducer{}
	pub := NewPublisher(prod, 2)

	desc := search.Descriptor{Model: "note", Fields: []schema.Definition{
		schema.DocumentField("text"),
		schema.Field("rank", marshal.Float),
		schema.Field("seen", marshal.Date),
	}}
	docs := []search.Document{
		{PK: "a", Fields: map[string]any{"text": "first note", "rank": 0.5, "seen": time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)}},
		{PK: "b", Fields: map[string]any{"text": "second note", "rank": 1.5}},
		{PK: "c", Fields: map[string]any{"text": "third note"}},
	}
	require.NoError(t, pub.Update(ctx, desc, docs))
	require.NoError(t, pub.Remove(ctx, "note", "b"))
	require.Len(t, prod.events, 3)
	assert.Equal(t, "note", prod.events[0].Key)

	e := newEngine(t)
	handle := HandleMessage(e)
	for _, ev := range prod.events {
		value, err := json.Marshal(ev.Value)
		require.NoError(t, err)
		require.NoError(t, handle(ctx, []byte(ev.Key), value))
	}
	assert.Equal(t, 2, e.DocumentCount())

	resp, err := e.SearchString(ctx, "note", search.Options{SortBy: []string{"-rank"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, resp.PKs())
}
