package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
)

// InstrumentedProducer wraps a Producer with metrics and tracing
type InstrumentedProducer struct {
	producer   *Producer
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewInstrumentedProducer creates a new instrumented producer
func NewInstrumentedProducer(producer *Producer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer:   producer,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("kafka-producer"),
		propagator: otel.GetTextMapPropagator(),
	}
}

// Publish publishes a message with metrics, tracing and trace-context
// propagation through message headers.
func (p *InstrumentedProducer) Publish(ctx context.Context, topic string, msg Message) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("kafka"),
			semconv.MessagingDestinationNameKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
			attribute.String("messaging.kafka.message_key", msg.Key),
			attribute.String("messaging.kafka.event_type", msg.EventType),
		),
	)
	defer span.End()

	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}
	p.propagator.Inject(ctx, propagation.MapCarrier(msg.Headers))

	err := p.producer.Publish(ctx, topic, msg)
	duration := time.Since(start)

	success := err == nil
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, msg.EventType, success, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, msg.EventType, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Int64("messaging.duration_ms", duration.Milliseconds()))
	}

	return err
}

// Close closes the underlying producer
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}

// InstrumentedConsumer wraps a Consumer with metrics and tracing
type InstrumentedConsumer struct {
	consumer   *Consumer
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewInstrumentedConsumer creates a new instrumented consumer
func NewInstrumentedConsumer(consumer *Consumer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedConsumer {
	return &InstrumentedConsumer{
		consumer:   consumer,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("kafka-consumer"),
		propagator: otel.GetTextMapPropagator(),
	}
}

// Subscribe registers an instrumented handler for the topic
func (c *InstrumentedConsumer) Subscribe(topic string, handler Handler) {
	c.consumer.Subscribe(topic, c.instrumentHandler(topic, handler))
}

func (c *InstrumentedConsumer) instrumentHandler(topic string, handler Handler) Handler {
	return func(ctx context.Context, msg Inbound) error {
		start := time.Now()

		if msg.Headers != nil {
			ctx = c.propagator.Extract(ctx, propagation.MapCarrier(msg.Headers))
		}

		eventType := msg.Headers["eventType"]

		ctx, span := c.tracer.Start(ctx, "kafka.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				semconv.MessagingSystemKey.String("kafka"),
				semconv.MessagingDestinationNameKey.String(topic),
				semconv.MessagingOperationKey.String("receive"),
				attribute.String("messaging.kafka.event_type", eventType),
				attribute.Int("messaging.kafka.partition", msg.Partition),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
				attribute.String("messaging.kafka.consumer_group", c.consumer.config.ConsumerGroup),
			),
		)
		defer span.End()

		err := handler(ctx, msg)
		duration := time.Since(start)

		success := err == nil
		if c.metrics != nil {
			c.metrics.RecordKafkaConsume(topic, eventType, success)
		}
		if c.logger != nil {
			c.logger.KafkaConsume(ctx, topic, eventType, msg.Partition, msg.Offset)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
			span.SetAttributes(attribute.Int64("messaging.processing_duration_ms", duration.Milliseconds()))
		}

		return err
	}
}

// Start starts the instrumented consumer
func (c *InstrumentedConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying consumer
func (c *InstrumentedConsumer) Close() error {
	return c.consumer.Close()
}

// SetConsumerLag updates the consumer lag metric
func (c *InstrumentedConsumer) SetConsumerLag(topic string, partition int, lag int64) {
	if c.metrics != nil {
		c.metrics.SetKafkaConsumerLag(topic, partition, lag)
	}
}
