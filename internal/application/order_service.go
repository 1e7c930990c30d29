package application

import (
	"context"
	"fmt"
	"time"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
)

// Order response statuses on the webhook endpoint.
const (
	OrderResultSuccess = "success"
	OrderResultError   = "error"
)

const orderSuccessMessage = "Order received and processed"

// DefaultFulfillmentTimeout bounds the post-commit dispatch call.
const DefaultFulfillmentTimeout = 10 * time.Second

// OrderProcessingService drives an order from webhook intake to committed
// ledger entry. Validation and availability failures are business outcomes,
// not errors; they come back as an error-status result.
type OrderProcessingService struct {
	availability       *AvailabilityService
	ledger             domain.OrderLedger
	fulfillment        FulfillmentGateway
	logger             *logging.Logger
	metrics            *metrics.Metrics
	fulfillmentTimeout time.Duration
}

// NewOrderProcessingService creates an OrderProcessingService.
func NewOrderProcessingService(
	availability *AvailabilityService,
	ledger domain.OrderLedger,
	fulfillment FulfillmentGateway,
	logger *logging.Logger,
	m *metrics.Metrics,
) *OrderProcessingService {
	return &OrderProcessingService{
		availability:       availability,
		ledger:             ledger,
		fulfillment:        fulfillment,
		logger:             logger.WithComponent("order_service"),
		metrics:            m,
		fulfillmentTimeout: DefaultFulfillmentTimeout,
	}
}

// SetFulfillmentTimeout overrides the dispatch timeout.
func (s *OrderProcessingService) SetFulfillmentTimeout(d time.Duration) {
	s.fulfillmentTimeout = d
}

// ProcessOrder validates the order, checks availability, commits the
// allocation and ledger write in one transaction, and dispatches
// fulfillment best-effort. The returned result always carries the
// storefront order ID so the caller can correlate the response.
func (s *OrderProcessingService) ProcessOrder(ctx context.Context, cmd ProcessOrderCommand) (*ProcessOrderResult, error) {
	log := s.logger.WithContext(ctx)

	order, err := cmd.Order.ToDomainOrder()
	if err != nil {
		s.metrics.RecordOrderRejected("invalid_payload")
		return errorResult(cmd.Order.ID, err.Error()), err
	}

	log.Info("processing order",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"line_items", len(order.LineItems))

	if err := order.ValidateForProcessing(); err != nil {
		s.metrics.RecordOrderRejected("validation_failed")
		log.Warn("order rejected by validation",
			"order_id", order.ID,
			"reason", err.Error())
		return errorResult(cmd.Order.ID, err.Error()), err
	}

	check, err := s.availability.Check(ctx, CheckAvailabilityCommand{
		OrderID:    cmd.Order.ID,
		ProductIDs: productIDs(order),
		Quantities: quantities(order),
	})
	if err != nil {
		return errorResult(cmd.Order.ID, "availability check failed"), fmt.Errorf("availability check: %w", err)
	}
	if !check.IsContinue {
		s.metrics.RecordOrderRejected("availability")
		log.Warn("order rejected by availability check",
			"order_id", order.ID,
			"reason", check.Description)
		return errorResult(cmd.Order.ID, check.Description), domain.NewAvailabilityError(check.Description)
	}

	if err := order.MarkProcessing(); err != nil {
		return errorResult(cmd.Order.ID, err.Error()), err
	}

	levels, err := s.ledger.CommitOrder(ctx, order)
	if err != nil {
		if allocErr, ok := domain.AsAllocationError(err); ok {
			s.metrics.RecordAllocationFailure(allocErr.Reason())
			log.Warn("order rejected by allocation",
				"order_id", order.ID,
				"product_id", allocErr.ProductID,
				"reason", allocErr.Error())
			return errorResult(cmd.Order.ID, allocErr.Error()), err
		}
		return errorResult(cmd.Order.ID, "order could not be committed"), fmt.Errorf("committing order: %w", err)
	}

	s.metrics.RecordOrderAccepted()
	log.Info("order committed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"allocated_products", len(levels))

	s.dispatchFulfillment(ctx, order)

	return &ProcessOrderResult{
		Status:  OrderResultSuccess,
		Message: orderSuccessMessage,
		OrderID: cmd.Order.ID,
	}, nil
}

// dispatchFulfillment hands the order to the warehouse in the background.
// Dispatch failure never changes the order outcome; the warehouse gets a
// warning log and a metric, nothing more.
func (s *OrderProcessingService) dispatchFulfillment(ctx context.Context, order *domain.Order) {
	req := FulfillmentRequest{
		ReferenceID:     fmt.Sprintf("%d", order.ID),
		Items:           fulfillmentItems(order),
		ShippingAddress: order.ShippingAddress,
		ShippingMethod:  "standard",
		CustomerEmail:   order.Customer.Email,
	}

	log := s.logger.WithContext(ctx)

	go func() {
		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fulfillmentTimeout)
		defer cancel()

		if err := s.fulfillment.DispatchOrder(dispatchCtx, req); err != nil {
			s.metrics.RecordFulfillmentDispatch(false)
			log.Warn("fulfillment dispatch failed",
				"order_id", order.ID,
				"error", err.Error())
			return
		}
		s.metrics.RecordFulfillmentDispatch(true)
		log.Info("fulfillment order dispatched", "order_id", order.ID)
	}()
}

func errorResult(orderID, message string) *ProcessOrderResult {
	return &ProcessOrderResult{
		Status:  OrderResultError,
		Message: message,
		OrderID: orderID,
	}
}

func productIDs(order *domain.Order) []int64 {
	ids := make([]int64, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func quantities(order *domain.Order) []int32 {
	qs := make([]int32, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		qs = append(qs, item.Quantity)
	}
	return qs
}

func fulfillmentItems(order *domain.Order) []FulfillmentItem {
	items := make([]FulfillmentItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, FulfillmentItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			SKU:       item.SKU,
		})
	}
	return items
}
