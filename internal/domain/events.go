package domain

import (
	"errors"
	"strconv"
	"time"
)

// Event type identifiers carried in the message eventType header
const (
	EventTypeInventoryUpdated = "inventory.updated"
	EventTypeOrderAccepted    = "order.accepted"
)

// Errors for event validation
var (
	ErrInvalidProductID  = errors.New("event productId must be positive")
	ErrNegativeQuantity  = errors.New("event quantity must not be negative")
	ErrInvalidLocationID = errors.New("event locationId must be positive")
)

// InventoryChangeEvent instructs the storefront to set a product's available
// quantity to an absolute value. Quantity is the post-allocation level, so
// replaying the event is harmless.
type InventoryChangeEvent struct {
	ProductID  int64 `json:"productId"`
	Quantity   int32 `json:"quantity"`
	LocationID int64 `json:"locationId"`
}

// Validate checks the event fields. Invalid events are dropped by consumers.
func (e InventoryChangeEvent) Validate() error {
	if e.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if e.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if e.LocationID <= 0 {
		return ErrInvalidLocationID
	}
	return nil
}

// EventType returns the event type identifier
func (e InventoryChangeEvent) EventType() string {
	return EventTypeInventoryUpdated
}

// PartitionKey keys the event by product so one product's updates stay on
// one partition.
func (e InventoryChangeEvent) PartitionKey() string {
	return strconv.FormatInt(e.ProductID, 10)
}

// OrderAcceptedEvent announces that an order passed allocation and was
// written to the ledger.
type OrderAcceptedEvent struct {
	OrderID          int64     `json:"orderId"`
	OrderNumber      string    `json:"orderNumber"`
	ProductTypeCount int       `json:"productTypeCount"`
	TotalQuantity    int32     `json:"totalQuantity"`
	AcceptedAt       time.Time `json:"acceptedAt"`
}

// NewOrderAcceptedEvent creates the accepted event for a committed order
func NewOrderAcceptedEvent(order *Order) OrderAcceptedEvent {
	return OrderAcceptedEvent{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		ProductTypeCount: order.ProductTypeCount(),
		TotalQuantity:    order.TotalQuantity(),
		AcceptedAt:       time.Now().UTC(),
	}
}

// EventType returns the event type identifier
func (e OrderAcceptedEvent) EventType() string {
	return EventTypeOrderAccepted
}

// PartitionKey keys the event by order
func (e OrderAcceptedEvent) PartitionKey() string {
	return strconv.FormatInt(e.OrderID, 10)
}
