package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
)

// InventorySyncService consumes inventory change events and pushes the
// absolute stock level to the storefront. A malformed or invalid event is
// dropped (its offset commits); a storefront failure leaves the offset
// uncommitted so the group redelivers.
type InventorySyncService struct {
	storefront StorefrontGateway
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewInventorySyncService creates an InventorySyncService.
func NewInventorySyncService(storefront StorefrontGateway, logger *logging.Logger, m *metrics.Metrics) *InventorySyncService {
	return &InventorySyncService{
		storefront: storefront,
		logger:     logger.WithComponent("inventory_sync"),
		metrics:    m,
	}
}

// Handle processes one inventory change message.
func (s *InventorySyncService) Handle(ctx context.Context, msg kafka.Inbound) error {
	log := s.logger.WithContext(ctx)

	var event domain.InventoryChangeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		s.metrics.RecordKafkaConsume(msg.Topic, domain.EventTypeInventoryUpdated, false)
		log.Warn("dropping malformed inventory event",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err.Error())
		return fmt.Errorf("%w: %v", kafka.ErrSkipMessage, err)
	}

	if err := event.Validate(); err != nil {
		s.metrics.RecordKafkaConsume(msg.Topic, domain.EventTypeInventoryUpdated, false)
		log.Warn("dropping invalid inventory event",
			"product_id", event.ProductID,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err.Error())
		return fmt.Errorf("%w: %v", kafka.ErrSkipMessage, err)
	}

	if err := s.storefront.SetInventoryLevel(ctx, event.LocationID, event.ProductID, event.Quantity); err != nil {
		s.metrics.RecordInventorySync(false)
		log.Error("storefront inventory sync failed",
			"product_id", event.ProductID,
			"location_id", event.LocationID,
			"quantity", event.Quantity,
			"error", err.Error())
		return fmt.Errorf("setting inventory level for product %d: %w", event.ProductID, err)
	}

	s.metrics.RecordInventorySync(true)
	s.metrics.RecordKafkaConsume(msg.Topic, domain.EventTypeInventoryUpdated, true)
	log.Info("inventory level synced",
		"product_id", event.ProductID,
		"location_id", event.LocationID,
		"quantity", event.Quantity)
	return nil
}
