package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-platform/order-management/pkg/kafka"
)

func newSyncService(storefront *fakeStorefrontGateway) *InventorySyncService {
	return NewInventorySyncService(storefront, newTestLogger(), newTestMetrics())
}

func inboundMessage(payload string) kafka.Inbound {
	return kafka.Inbound{
		Topic:     kafka.Topics.InventoryUpdates,
		Partition: 0,
		Offset:    42,
		Key:       []byte("742"),
		Value:     []byte(payload),
	}
}

func TestHandle_SyncsAbsoluteLevel(t *testing.T) {
	storefront := &fakeStorefrontGateway{}
	service := newSyncService(storefront)

	err := service.Handle(context.Background(), inboundMessage(`{"productId":742,"quantity":8,"locationId":1}`))

	require.NoError(t, err)
	calls := storefront.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(1), calls[0].locationID)
	assert.Equal(t, int64(742), calls[0].inventoryItemID)
	assert.Equal(t, int32(8), calls[0].available)
}

func TestHandle_ZeroQuantityIsValid(t *testing.T) {
	storefront := &fakeStorefrontGateway{}
	service := newSyncService(storefront)

	err := service.Handle(context.Background(), inboundMessage(`{"productId":742,"quantity":0,"locationId":1}`))

	require.NoError(t, err)
	require.Len(t, storefront.Calls(), 1)
	assert.Equal(t, int32(0), storefront.Calls()[0].available)
}

func TestHandle_RedeliveredEventIsIdempotent(t *testing.T) {
	storefront := &fakeStorefrontGateway{}
	service := newSyncService(storefront)
	msg := inboundMessage(`{"productId":742,"quantity":8,"locationId":1}`)

	require.NoError(t, service.Handle(context.Background(), msg))
	require.NoError(t, service.Handle(context.Background(), msg))

	calls := storefront.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1])
	assert.Equal(t, int32(8), calls[1].available)
}

func TestHandle_MalformedPayloadIsSkipped(t *testing.T) {
	storefront := &fakeStorefrontGateway{}
	service := newSyncService(storefront)

	err := service.Handle(context.Background(), inboundMessage(`{not json`))

	require.Error(t, err)
	assert.ErrorIs(t, err, kafka.ErrSkipMessage)
	assert.Empty(t, storefront.Calls())
}

func TestHandle_InvalidEventIsSkipped(t *testing.T) {
	storefront := &fakeStorefrontGateway{}
	service := newSyncService(storefront)

	err := service.Handle(context.Background(), inboundMessage(`{"productId":0,"quantity":3,"locationId":10}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, kafka.ErrSkipMessage)
	assert.Empty(t, storefront.Calls())
}

func TestHandle_StorefrontFailureIsRetryable(t *testing.T) {
	storefront := &fakeStorefrontGateway{err: errors.New("storefront unavailable")}
	service := newSyncService(storefront)

	err := service.Handle(context.Background(), inboundMessage(`{"productId":742,"quantity":8,"locationId":1}`))

	require.Error(t, err)
	assert.NotErrorIs(t, err, kafka.ErrSkipMessage)
}
