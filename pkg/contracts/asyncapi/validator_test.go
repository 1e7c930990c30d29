package asyncapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpec = `
asyncapi: 3.0.0
info:
  title: Order Events
  version: 1.0.0
channels:
  inventoryUpdates:
    address: orders.inventory.updates
components:
  schemas:
    InventoryChangeEvent:
      type: object
      additionalProperties: false
      required:
        - productId
        - quantity
        - locationId
      properties:
        productId:
          type: integer
          minimum: 1
        quantity:
          type: integer
          minimum: 0
        locationId:
          type: integer
          minimum: 1
    OrderAcceptedEvent:
      type: object
      required:
        - orderId
        - orderNumber
      properties:
        orderId:
          type: integer
        orderNumber:
          type: string
`

func newTestValidator(t *testing.T) *EventValidator {
	t.Helper()
	validator, err := NewEventValidatorFromBytes([]byte(testSpec))
	require.NoError(t, err)
	return validator
}

func TestNewEventValidatorFromBytes(t *testing.T) {
	validator := newTestValidator(t)

	assert.True(t, validator.HasSchema("inventory.updated"))
	assert.True(t, validator.HasSchema("order.accepted"))
	assert.False(t, validator.HasSchema("order.cancelled"))
	assert.ElementsMatch(t, []string{"inventory.updated", "order.accepted"}, validator.SupportedEventTypes())
}

func TestValidatePayload(t *testing.T) {
	validator := newTestValidator(t)

	tests := []struct {
		name      string
		eventType string
		payload   string
		wantErr   bool
	}{
		{
			name:      "valid inventory change",
			eventType: "inventory.updated",
			payload:   `{"productId":501,"quantity":8,"locationId":1}`,
		},
		{
			name:      "zero quantity",
			eventType: "inventory.updated",
			payload:   `{"productId":501,"quantity":0,"locationId":1}`,
		},
		{
			name:      "missing location",
			eventType: "inventory.updated",
			payload:   `{"productId":501,"quantity":8}`,
			wantErr:   true,
		},
		{
			name:      "zero product id",
			eventType: "inventory.updated",
			payload:   `{"productId":0,"quantity":3,"locationId":10}`,
			wantErr:   true,
		},
		{
			name:      "negative quantity",
			eventType: "inventory.updated",
			payload:   `{"productId":501,"quantity":-1,"locationId":1}`,
			wantErr:   true,
		},
		{
			name:      "unexpected field",
			eventType: "inventory.updated",
			payload:   `{"productId":501,"quantity":8,"locationId":1,"delta":-2}`,
			wantErr:   true,
		},
		{
			name:      "not json",
			eventType: "inventory.updated",
			payload:   `{broken`,
			wantErr:   true,
		},
		{
			name:      "valid order accepted",
			eventType: "order.accepted",
			payload:   `{"orderId":820982911946154500,"orderNumber":"1001"}`,
		},
		{
			name:      "unknown event type",
			eventType: "order.cancelled",
			payload:   `{}`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePayload(tt.eventType, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterSchema(t *testing.T) {
	validator := newTestValidator(t)

	err := validator.RegisterSchema("order.cancelled", []byte(`{
		"type": "object",
		"required": ["orderId"],
		"properties": {"orderId": {"type": "integer"}}
	}`))
	require.NoError(t, err)

	assert.NoError(t, validator.ValidatePayload("order.cancelled", []byte(`{"orderId":1}`)))
	assert.Error(t, validator.ValidatePayload("order.cancelled", []byte(`{}`)))
}
