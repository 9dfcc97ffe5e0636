package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/search"
)

// Producer is the subset of *kafka.Producer the publisher uses.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher turns documents into index events on Kafka. Events are keyed by
// model so one model's changes stay ordered on one partition.
type Publisher struct {
	producer  Producer
	batchSize int
	logger    *slog.Logger
}

func NewPublisher(producer Producer, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Publisher{
		producer:  producer,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "index-publisher"),
	}
}

// Update publishes docs as update events of at most batchSize documents.
func (p *Publisher) Update(ctx context.Context, desc search.Descriptor, docs []search.Document) error {
	specs := make([]FieldSpec, len(desc.Fields))
	for i, d := range desc.Fields {
		specs[i] = SpecOf(d)
	}
	var events []kafka.Event
	for start := 0; start < len(docs); start += p.batchSize {
		end := min(start+p.batchSize, len(docs))
		payloads := make([]DocumentPayload, 0, end-start)
		for _, d := range docs[start:end] {
			payloads = append(payloads, DocumentPayload{PK: d.PK, Fields: d.Fields})
		}
		events = append(events, kafka.Event{
			Key:   desc.Model,
			Value: Event{Op: OpUpdate, Model: desc.Model, Fields: specs, Documents: payloads},
		})
	}
	if len(events) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("publishing %s documents: %w", desc.Model, err)
	}
	p.logger.Info("documents published",
		"model", desc.Model,
		"documents", len(docs),
		"events", len(events),
	)
	return nil
}

func (p *Publisher) Remove(ctx context.Context, model, pk string) error {
	return p.producer.Publish(ctx, kafka.Event{
		Key:   model,
		Value: Event{Op: OpRemove, Model: model, PK: pk},
	})
}

func (p *Publisher) Clear(ctx context.Context, models ...string) error {
	return p.producer.Publish(ctx, kafka.Event{
		Key:   "clear",
		Value: Event{Op: OpClear, Models: models},
	})
}
