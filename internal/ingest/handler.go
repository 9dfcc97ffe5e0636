package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/search"
)

// Indexer is the write side of a search engine.
type Indexer interface {
	Update(ctx context.Context, desc search.Descriptor, docs []search.Document) error
	Remove(ctx context.Context, model, pk string) error
	Clear(ctx context.Context, models ...string) error
}

// Apply validates ev and performs it against idx.
func Apply(ctx context.Context, idx Indexer, ev *Event) error {
	if err := Validate(ev); err != nil {
		return err
	}
	switch ev.Op {
	case OpUpdate:
		desc := ev.Descriptor()
		docs, err := Documents(desc, ev.Documents)
		if err != nil {
			return fmt.Errorf("coercing %s documents: %w", ev.Model, err)
		}
		return idx.Update(ctx, desc, docs)
	case OpRemove:
		return idx.Remove(ctx, ev.Model, ev.PK)
	default:
		return idx.Clear(ctx, ev.Models...)
	}
}

// HandleMessage returns a Kafka MessageHandler that decodes each message
// as an Event and applies it to idx.
func HandleMessage(idx Indexer) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			logger.Error("failed to decode index event",
				"error", err,
				"key", string(key),
			)
			return err
		}
		logger.Debug("processing index event",
			"op", ev.Op,
			"model", ev.Model,
			"documents", len(ev.Documents),
		)
		if err := Apply(ctx, idx, &ev); err != nil {
			return fmt.Errorf("applying %s event for %q: %w", ev.Op, ev.Model, err)
		}
		logger.Info("index event applied",
			"op", ev.Op,
			"model", ev.Model,
			"documents", len(ev.Documents),
		)
		return nil
	}
}
