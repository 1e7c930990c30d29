package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryAllocate(t *testing.T) {
	record := &InventoryRecord{
		ProductID:         501,
		SKU:               "WR-BLK-42",
		AvailableQuantity: 10,
		TotalQuantity:     12,
		ReservedQuantity:  2,
	}

	require.NoError(t, record.Allocate(4))
	assert.Equal(t, int32(6), record.AvailableQuantity)
	assert.Equal(t, int32(6), record.ReservedQuantity)

	// Allocating exactly the remainder drains the position to zero.
	require.NoError(t, record.Allocate(6))
	assert.Equal(t, int32(0), record.AvailableQuantity)
}

func TestInventoryAllocate_Insufficient(t *testing.T) {
	record := &InventoryRecord{
		ProductID:         501,
		AvailableQuantity: 3,
		ReservedQuantity:  1,
	}

	err := record.Allocate(5)
	require.Error(t, err)

	allocErr, ok := AsAllocationError(err)
	require.True(t, ok)
	assert.Equal(t, int64(501), allocErr.ProductID)
	assert.Equal(t, int32(5), allocErr.Requested)
	assert.Equal(t, int32(3), allocErr.Available)
	assert.False(t, allocErr.NotFound)

	// Failed allocation must not mutate the record.
	assert.Equal(t, int32(3), record.AvailableQuantity)
	assert.Equal(t, int32(1), record.ReservedQuantity)
}

func TestAllocationErrorMessages(t *testing.T) {
	notFound := NewProductNotFoundError(42)
	assert.Equal(t, "product 42 not found", notFound.Error())
	assert.Equal(t, "product_not_found", notFound.Reason())

	short := NewInsufficientStockError(42, 5, 3)
	assert.Equal(t, "insufficient stock for product 42", short.Error())
	assert.Equal(t, "insufficient_stock", short.Reason())
}

func TestAsAllocationError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("committing order: %w", NewInsufficientStockError(7, 2, 0))

	allocErr, ok := AsAllocationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, int64(7), allocErr.ProductID)

	_, ok = AsAllocationError(fmt.Errorf("something else"))
	assert.False(t, ok)
}
