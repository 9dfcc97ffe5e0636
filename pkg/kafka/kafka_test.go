package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// fakeReader serves queued messages and cancels the consume loop once
// they run out.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerCommitsHandledAndPermanentFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{
		queue: []kafka.Message{
			{Offset: 1, Value: []byte(`ok`)},
			{Offset: 2, Value: []byte(`bad`)},
			{Offset: 3, Value: []byte(`ok`)},
		},
		cancel: cancel,
	}
	var seen []string
	c := NewConsumerWithReader(r, "index-events", func(_ context.Context, _ []byte, value []byte) error {
		seen = append(seen, string(value))
		if string(value) == "bad" {
			return apperrors.New(apperrors.ErrInvalidInput, "unknown op")
		}
		return nil
	})

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"ok", "bad", "ok"}, seen)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
}

func TestConsumerStopsOnTransientFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{
		queue:  []kafka.Message{{Offset: 7, Value: []byte(`x`)}},
		cancel: cancel,
	}
	boom := errors.New("disk full")
	c := NewConsumerWithReader(r, "index-events", func(context.Context, []byte, []byte) error { return boom })

	err := c.Start(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.committed)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "index-events")

	require.NoError(t, p.Publish(context.Background(), Event{Key: "note.1", Value: map[string]string{"op": "remove"}}))
	require.NoError(t, p.PublishBatch(context.Background(), []Event{{Key: "a", Value: 1}, {Key: "b", Value: 2}}))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, "note.1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"op":"remove"}`, string(w.msgs[0].Value))

	type op struct {
		Op string `json:"op"`
	}
	decoded, err := DecodeJSON[op](w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "remove", decoded.Op)

	_, err = DecodeJSON[op]([]byte("{"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
