package domain

import (
	"context"
)

// OrderRepository defines order persistence
type OrderRepository interface {
	// FindByID retrieves an order by its storefront ID
	FindByID(ctx context.Context, orderID int64) (*Order, error)

	// FindByOrderNumber retrieves an order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ExistsCompleted reports whether a fulfilled order with this ID
	// already exists
	ExistsCompleted(ctx context.Context, orderID int64) (bool, error)

	// FindByStatus retrieves orders by status
	FindByStatus(ctx context.Context, status OrderStatus, pagination Pagination) ([]*Order, error)

	// UpdateStatus updates the order status
	UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error

	// Count returns the total number of orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)
}

// InventoryRepository defines read access to the stock positions.
// Mutation happens only through the ledger commit.
type InventoryRepository interface {
	// FindByProductID retrieves a single stock position
	FindByProductID(ctx context.Context, productID int64) (*InventoryRecord, error)

	// FindByProductIDs retrieves stock positions for a set of products
	FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]*InventoryRecord, error)

	// Upsert writes a stock position (seeding and adjustments)
	Upsert(ctx context.Context, record *InventoryRecord) error
}

// OrderLedger commits an order atomically: allocate every line item,
// persist the order, and stage the outbound events, all in one transaction.
type OrderLedger interface {
	// CommitOrder runs the allocation + ledger transaction.
	// On success it returns the post-allocation stock levels per product.
	CommitOrder(ctx context.Context, order *Order) (map[int64]int32, error)
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// OrderFilter represents filter options for querying orders
type OrderFilter struct {
	Status      *OrderStatus
	OrderNumber *string
	FromDate    *string
	ToDate      *string
}
