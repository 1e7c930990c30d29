package application

import (
	"context"

	"github.com/order-platform/order-management/internal/domain"
)

// StorefrontGateway pushes inventory levels back to the storefront
type StorefrontGateway interface {
	// SetInventoryLevel sets the available quantity for a product at a
	// location to an absolute value.
	SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int32) error
}

// FulfillmentRequest is the dispatch payload sent to the warehouse
type FulfillmentRequest struct {
	ReferenceID     string            `json:"referenceId"`
	Items           []FulfillmentItem `json:"items"`
	ShippingAddress domain.Address    `json:"shippingAddress"`
	ShippingMethod  string            `json:"shippingMethod"`
	CustomerEmail   string            `json:"customerEmail"`
}

// FulfillmentItem is a single line on a fulfillment order
type FulfillmentItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int32  `json:"quantity"`
	SKU       string `json:"sku"`
}

// FulfillmentGateway dispatches committed orders to the warehouse
type FulfillmentGateway interface {
	// DispatchOrder submits a fulfillment order. Failure is best-effort
	// territory; callers log and move on.
	DispatchOrder(ctx context.Context, req FulfillmentRequest) error
}
