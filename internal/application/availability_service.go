package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
)

// Product availability statuses reported by the check endpoint.
const (
	ProductStatusAvailable    = "available"
	ProductStatusInsufficient = "insufficient"
	ProductStatusNotFound     = "not_found"
)

const (
	checkDescriptionSuccess      = "success"
	checkDescriptionInsufficient = "not enough inventory"
	checkDescriptionAlreadyDone  = "order already exists and completed"
	notFoundProductSKU           = "N/A"
	notFoundProductTitle         = "product not found"
)

// AvailabilityService answers whether an order's line items can be
// satisfied from current inventory. The answer is advisory; the ledger
// commit is the source of truth and may still refuse an order that
// checked out here.
type AvailabilityService struct {
	orders    domain.OrderRepository
	inventory domain.InventoryRepository
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewAvailabilityService creates an AvailabilityService.
func NewAvailabilityService(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *AvailabilityService {
	return &AvailabilityService{
		orders:    orders,
		inventory: inventory,
		logger:    logger.WithComponent("availability_service"),
		metrics:   m,
	}
}

// Check reports per-product availability for the requested quantities.
// A fulfilled order with the same ID short-circuits the check so webhook
// redeliveries cannot allocate stock twice.
func (s *AvailabilityService) Check(ctx context.Context, cmd CheckAvailabilityCommand) (*OrderCheckResult, error) {
	if len(cmd.ProductIDs) != len(cmd.Quantities) {
		return nil, fmt.Errorf("product ids and quantities must have the same length")
	}

	if orderID, err := strconv.ParseInt(cmd.OrderID, 10, 64); err == nil {
		completed, err := s.orders.ExistsCompleted(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("checking for completed order: %w", err)
		}
		if completed {
			s.logger.WithContext(ctx).Info("order already completed, skipping availability check",
				"order_id", cmd.OrderID)
			return &OrderCheckResult{
				IsContinue:  false,
				Description: checkDescriptionAlreadyDone,
				OrderID:     cmd.OrderID,
				Products:    []ProductCheckResult{},
			}, nil
		}
	}

	records, err := s.inventory.FindByProductIDs(ctx, cmd.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	result := &OrderCheckResult{
		IsContinue:  true,
		Description: checkDescriptionSuccess,
		OrderID:     cmd.OrderID,
		Products:    make([]ProductCheckResult, 0, len(cmd.ProductIDs)),
	}

	for i, productID := range cmd.ProductIDs {
		requested := cmd.Quantities[i]

		record, found := records[productID]
		if !found {
			result.IsContinue = false
			result.Products = append(result.Products, ProductCheckResult{
				ProductID:         productID,
				SKU:               notFoundProductSKU,
				Title:             notFoundProductTitle,
				RequestedQuantity: requested,
				Status:            ProductStatusNotFound,
			})
			continue
		}

		product := ProductCheckResult{
			ProductID:         productID,
			SKU:               record.SKU,
			Title:             record.Title,
			RequestedQuantity: requested,
			AvailableQuantity: record.AvailableQuantity,
		}
		if record.AvailableQuantity >= requested {
			product.Status = ProductStatusAvailable
			product.RemainQuantity = record.AvailableQuantity - requested
		} else {
			product.Status = ProductStatusInsufficient
			product.RemainQuantity = record.AvailableQuantity
			result.IsContinue = false
		}
		result.Products = append(result.Products, product)
	}

	if !result.IsContinue {
		result.Description = checkDescriptionInsufficient
	}
	return result, nil
}
