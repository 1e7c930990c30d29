package domain

import (
	"errors"
	"fmt"
	"time"
)

// AllocationError reports why a line item could not be allocated.
// NotFound distinguishes an unknown product from one that is merely short.
type AllocationError struct {
	ProductID int64
	Requested int32
	Available int32
	NotFound  bool
}

func (e *AllocationError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("product %d not found", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// NewProductNotFoundError creates an allocation error for an unknown product
func NewProductNotFoundError(productID int64) *AllocationError {
	return &AllocationError{ProductID: productID, NotFound: true}
}

// NewInsufficientStockError creates an allocation error for a stock shortage
func NewInsufficientStockError(productID int64, requested, available int32) *AllocationError {
	return &AllocationError{ProductID: productID, Requested: requested, Available: available}
}

// Reason returns a stable label for metrics.
func (e *AllocationError) Reason() string {
	if e.NotFound {
		return "product_not_found"
	}
	return "insufficient_stock"
}

// AsAllocationError unwraps err to an AllocationError if there is one.
func AsAllocationError(err error) (*AllocationError, bool) {
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return allocErr, true
	}
	return nil, false
}

// AvailabilityError reports a failed pre-allocation availability check.
type AvailabilityError struct {
	Description string
}

func (e *AvailabilityError) Error() string {
	return e.Description
}

// NewAvailabilityError creates an availability error with the check verdict
func NewAvailabilityError(description string) *AvailabilityError {
	return &AvailabilityError{Description: description}
}

// InventoryRecord is the stock position for a single product.
// AvailableQuantity never goes negative; only the allocator mutates it,
// through a conditional decrement.
type InventoryRecord struct {
	ProductID         int64     `bson:"_id" json:"productId"`
	SKU               string    `bson:"sku" json:"sku"`
	Title             string    `bson:"title" json:"title"`
	Price             string    `bson:"price" json:"price"`
	Currency          string    `bson:"currency" json:"currency"`
	AvailableQuantity int32     `bson:"availableQuantity" json:"availableQuantity"`
	TotalQuantity     int32     `bson:"totalQuantity" json:"totalQuantity"`
	ReservedQuantity  int32     `bson:"reservedQuantity" json:"reservedQuantity"`
	LastUpdated       time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

// CanAllocate returns true when the requested quantity is coverable
func (r *InventoryRecord) CanAllocate(quantity int32) bool {
	return r.AvailableQuantity >= quantity
}

// Allocate reserves quantity units, failing without mutation when stock is
// short.
func (r *InventoryRecord) Allocate(quantity int32) error {
	if !r.CanAllocate(quantity) {
		return NewInsufficientStockError(r.ProductID, quantity, r.AvailableQuantity)
	}

	r.AvailableQuantity -= quantity
	r.ReservedQuantity += quantity
	r.LastUpdated = time.Now().UTC()

	return nil
}
