// Package kafka carries index events over segmentio/kafka-go. The producer
// serialises events as JSON; the consumer hands raw message values to a
// MessageHandler and commits them once handled.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer creates a group Consumer for topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return NewConsumerWithReader(r, topic, handler)
}

// NewConsumerWithReader wraps an existing Reader.
func NewConsumerWithReader(r Reader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
	}
}

// Start enters the consume loop until ctx is cancelled.
//
// A message whose handler fails with a non-retryable error (invalid input,
// schema or type problems) is logged and committed so it cannot wedge the
// partition. Any other handler error leaves the message uncommitted and
// stops the loop, so the group redelivers it after restart.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			if !Permanent(err) {
				return fmt.Errorf("handling offset %d: %w", msg.Offset, err)
			}
			c.logger.Warn("dropping unprocessable message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"kind", apperrors.Kind(err),
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Permanent reports whether redelivering a message cannot succeed.
func Permanent(err error) bool {
	switch apperrors.Kind(err) {
	case "invalid_input", "schema", "type_mismatch", "unknown_field", "malformed_query":
		return true
	}
	return false
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into
// T. Numbers inside untyped values decode as json.Number so integers keep
// their precision.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return result, apperrors.Newf(apperrors.ErrInvalidInput, "decoding kafka message: %v", err)
	}
	return result, nil
}
