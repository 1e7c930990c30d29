package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventoryChangeEventValidate(t *testing.T) {
	tests := []struct {
		name        string
		event       InventoryChangeEvent
		expectError error
	}{
		{
			name:  "valid event",
			event: InventoryChangeEvent{ProductID: 5, Quantity: 3, LocationID: 10},
		},
		{
			name:  "zero quantity is a valid absolute level",
			event: InventoryChangeEvent{ProductID: 5, Quantity: 0, LocationID: 10},
		},
		{
			name:        "zero product id",
			event:       InventoryChangeEvent{ProductID: 0, Quantity: 3, LocationID: 10},
			expectError: ErrInvalidProductID,
		},
		{
			name:        "negative product id",
			event:       InventoryChangeEvent{ProductID: -1, Quantity: 3, LocationID: 10},
			expectError: ErrInvalidProductID,
		},
		{
			name:        "negative quantity",
			event:       InventoryChangeEvent{ProductID: 5, Quantity: -1, LocationID: 10},
			expectError: ErrNegativeQuantity,
		},
		{
			name:        "missing location",
			event:       InventoryChangeEvent{ProductID: 5, Quantity: 3, LocationID: 0},
			expectError: ErrInvalidLocationID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.expectError == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectError)
			}
		})
	}
}

func TestInventoryChangeEventPartitionKey(t *testing.T) {
	event := InventoryChangeEvent{ProductID: 742, Quantity: 1, LocationID: 3}

	assert.Equal(t, "742", event.PartitionKey())
	assert.Equal(t, EventTypeInventoryUpdated, event.EventType())
}

func TestNewOrderAcceptedEvent(t *testing.T) {
	order := createTestOrder()

	event := NewOrderAcceptedEvent(order)

	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, order.OrderNumber, event.OrderNumber)
	assert.Equal(t, 2, event.ProductTypeCount)
	assert.Equal(t, int32(3), event.TotalQuantity)
	assert.False(t, event.AcceptedAt.IsZero())
	assert.Equal(t, EventTypeOrderAccepted, event.EventType())
	assert.Equal(t, "820982911946154500", event.PartitionKey())
}
