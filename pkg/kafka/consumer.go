package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrSkipMessage tells the consumer to commit the offset without treating
// the message as handled. Handlers return it for malformed or invalid
// payloads that redelivery cannot fix.
var ErrSkipMessage = errors.New("kafka: skip message")

// Inbound is a fetched record handed to a Handler.
type Inbound struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes one inbound record. A nil return commits the offset;
// any other error leaves the offset uncommitted so the group redelivers.
type Handler func(ctx context.Context, msg Inbound) error

// Consumer handles consuming messages from Kafka topics
type Consumer struct {
	config       *Config
	readers      map[string]*kafka.Reader
	handlers     map[string]Handler
	logger       *slog.Logger
	retryBackoff time.Duration
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config *Config, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	backoff := config.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Consumer{
		config:       config,
		readers:      make(map[string]*kafka.Reader),
		handlers:     make(map[string]Handler),
		logger:       logger,
		retryBackoff: backoff,
	}
}

// Subscribe registers the handler for a topic. One handler per topic;
// registering again replaces the previous handler.
func (c *Consumer) Subscribe(topic string, handler Handler) {
	c.handlers[topic] = handler
}

// getReader returns a reader for the specified topic, creating one if necessary
func (c *Consumer) getReader(topic string) *kafka.Reader {
	if reader, exists := c.readers[topic]; exists {
		return reader
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.config.Brokers,
		GroupID:  c.config.ConsumerGroup,
		Topic:    topic,
		MinBytes: c.config.MinBytes,
		MaxBytes: c.config.MaxBytes,
		MaxWait:  c.config.MaxWait,
	})

	c.readers[topic] = reader
	return reader
}

// Start starts consuming messages from all subscribed topics and blocks
// until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	for topic := range c.handlers {
		go c.consumeTopic(ctx, topic)
	}

	<-ctx.Done()
	return ctx.Err()
}

// consumeTopic consumes a single topic sequentially. Messages within a
// partition are handled in order; a handler error stalls that partition
// until the message succeeds or is skipped.
func (c *Consumer) consumeTopic(ctx context.Context, topic string) {
	reader := c.getReader(topic)
	handler := c.handlers[topic]

	c.logger.Info("Starting consumer for topic", "topic", topic, "group", c.config.ConsumerGroup)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping consumer for topic", "topic", topic)
			return
		default:
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("Error fetching message", "topic", topic, "error", err)
				continue
			}

			if !c.handleMessage(ctx, topic, handler, msg) {
				return
			}

			if err := reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("Error committing message", "topic", topic, "error", err)
			}
		}
	}
}

// handleMessage runs the handler for one record, retrying the same record
// in place on failure. Fetching the next record before this one is handled
// would let a later commit cover the failed offset and lose the message.
// Returns true when the offset may be committed, false when the context
// ended first.
func (c *Consumer) handleMessage(ctx context.Context, topic string, handler Handler, msg kafka.Message) bool {
	for {
		err := handler(ctx, toInbound(msg))
		switch {
		case err == nil:
			return true
		case errors.Is(err, ErrSkipMessage):
			c.logger.Warn("Skipping message",
				"topic", topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return true
		default:
			c.logger.Error("Error handling message, retrying",
				"topic", topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retryBackoff):
		}
	}
}

func toInbound(msg kafka.Message) Inbound {
	in := Inbound{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
	}
	if len(msg.Headers) > 0 {
		in.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			in.Headers[h.Key] = string(h.Value)
		}
	}
	return in
}

// Close closes all readers
func (c *Consumer) Close() error {
	var lastErr error
	for topic, reader := range c.readers {
		if err := reader.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close reader for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
