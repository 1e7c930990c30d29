package messaging

import (
	"context"
	"fmt"

	"github.com/order-platform/order-management/internal/application"
	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/contracts/asyncapi"
	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
)

// Consumer is the subscription side the binding needs. Satisfied by
// kafka.Consumer and kafka.InstrumentedConsumer.
type Consumer interface {
	Subscribe(topic string, handler kafka.Handler)
	Start(ctx context.Context) error
	Close() error
}

// InventoryConsumer binds the inventory updates topic to the sync service.
// When a contract validator is supplied, payloads that fail the published
// schema are dropped before they reach the service.
type InventoryConsumer struct {
	consumer  Consumer
	sync      *application.InventorySyncService
	validator *asyncapi.EventValidator
	logger    *logging.Logger
}

// NewInventoryConsumer creates an InventoryConsumer. validator may be nil.
func NewInventoryConsumer(
	consumer Consumer,
	sync *application.InventorySyncService,
	validator *asyncapi.EventValidator,
	logger *logging.Logger,
) *InventoryConsumer {
	return &InventoryConsumer{
		consumer:  consumer,
		sync:      sync,
		validator: validator,
		logger:    logger.WithComponent("inventory_consumer"),
	}
}

// Start subscribes to the inventory updates topic and blocks until the
// context is cancelled.
func (c *InventoryConsumer) Start(ctx context.Context) error {
	c.consumer.Subscribe(kafka.Topics.InventoryUpdates, c.handle)

	c.logger.Info("starting inventory updates consumer",
		"topic", kafka.Topics.InventoryUpdates)
	return c.consumer.Start(ctx)
}

// Close closes the underlying consumer
func (c *InventoryConsumer) Close() error {
	return c.consumer.Close()
}

func (c *InventoryConsumer) handle(ctx context.Context, msg kafka.Inbound) error {
	if c.validator != nil {
		if err := c.validator.ValidatePayload(domain.EventTypeInventoryUpdated, msg.Value); err != nil {
			c.logger.WithContext(ctx).Warn("dropping event failing contract validation",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err.Error())
			return fmt.Errorf("%w: %v", kafka.ErrSkipMessage, err)
		}
	}

	return c.sync.Handle(ctx, msg)
}
