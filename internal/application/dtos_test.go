package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-platform/order-management/internal/domain"
)

func TestToDomainOrder(t *testing.T) {
	dto := createWebhookOrder()

	order, err := dto.ToDomainOrder()

	require.NoError(t, err)
	assert.Equal(t, int64(820982911946154500), order.ID)
	assert.Equal(t, "1001", order.OrderNumber)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, domain.FinancialPaid, order.FinancialStatus)
	assert.Equal(t, int64(115310627314723950), order.Customer.ID)
	assert.Equal(t, "jane.doe@example.com", order.Customer.Email)
	assert.Equal(t, "Jane", order.Customer.FirstName)

	require.Len(t, order.LineItems, 2)
	item := order.LineItems[0]
	assert.Equal(t, int64(501), item.ProductID)
	assert.Equal(t, int32(2), item.Quantity)
	assert.Equal(t, "WR-BLK-42", item.SKU)
	assert.Equal(t, domain.Money{Amount: "89.90", Currency: "CAD"}, item.Price)

	assert.Equal(t, "Ottawa", order.ShippingAddress.City)
	assert.True(t, order.ShippingAddress.IsComplete())
	assert.Equal(t, domain.Money{Amount: "234.30", Currency: "CAD"}, order.TotalPrice)
	assert.Equal(t, time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC), order.CreatedAt.UTC())
}

func TestToDomainOrder_InvalidID(t *testing.T) {
	dto := createWebhookOrder()
	dto.ID = "abc"

	_, err := dto.ToDomainOrder()

	require.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestToDomainOrder_NormalizesInput(t *testing.T) {
	dto := createWebhookOrder()
	dto.FinancialStatus = "PAID"
	dto.LineItems[0].SKU = "  WR-BLK-42  "

	order, err := dto.ToDomainOrder()

	require.NoError(t, err)
	assert.Equal(t, domain.FinancialPaid, order.FinancialStatus)
	assert.Equal(t, "WR-BLK-42", order.LineItems[0].SKU)
}

func TestToDomainOrder_LocalTimestampFormat(t *testing.T) {
	dto := createWebhookOrder()
	dto.CreatedAt = "2026-08-14T10:30:00"

	order, err := dto.ToDomainOrder()

	require.NoError(t, err)
	assert.Equal(t, 2026, order.CreatedAt.Year())
	assert.Equal(t, time.Month(8), order.CreatedAt.Month())
}

func TestNewOrderDTO(t *testing.T) {
	src := createWebhookOrder()
	order, err := src.ToDomainOrder()
	require.NoError(t, err)
	require.NoError(t, order.MarkProcessing())

	dto := NewOrderDTO(order)

	assert.Equal(t, int64(820982911946154500), dto.ID)
	assert.Equal(t, "PROCESSING", dto.Status)
	assert.Equal(t, "jane.doe@example.com", dto.CustomerEmail)
	assert.Equal(t, 2, dto.ProductTypeCount)
	assert.Equal(t, int32(3), dto.TotalQuantity)
	require.NotNil(t, dto.ProcessedAt)
}
