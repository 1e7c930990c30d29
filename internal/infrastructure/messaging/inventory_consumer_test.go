package messaging

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-platform/order-management/internal/application"
	"github.com/order-platform/order-management/pkg/contracts/asyncapi"
	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
)

const consumerTestSpec = `
asyncapi: 3.0.0
info:
  title: Order Events
  version: 1.0.0
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
`

type stubConsumer struct {
	topic   string
	handler kafka.Handler
	started bool
	closed  bool
}

func (c *stubConsumer) Subscribe(topic string, handler kafka.Handler) {
	c.topic = topic
	c.handler = handler
}

func (c *stubConsumer) Start(ctx context.Context) error {
	c.started = true
	return nil
}

func (c *stubConsumer) Close() error {
	c.closed = true
	return nil
}

type recordingStorefront struct {
	calls int
}

func (g *recordingStorefront) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int32) error {
	g.calls++
	return nil
}

func newConsumerFixture(t *testing.T, withValidator bool) (*InventoryConsumer, *stubConsumer, *recordingStorefront) {
	t.Helper()

	logConfig := logging.DefaultConfig("test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)

	storefront := &recordingStorefront{}
	sync := application.NewInventorySyncService(storefront, logger, metrics.New(metrics.DefaultConfig("test")))

	var validator *asyncapi.EventValidator
	if withValidator {
		var err error
		validator, err = asyncapi.NewEventValidatorFromBytes([]byte(consumerTestSpec))
		require.NoError(t, err)
	}

	stub := &stubConsumer{}
	return NewInventoryConsumer(stub, sync, validator, logger), stub, storefront
}

func TestStart_SubscribesToInventoryUpdates(t *testing.T) {
	consumer, stub, _ := newConsumerFixture(t, true)

	require.NoError(t, consumer.Start(context.Background()))

	assert.True(t, stub.started)
	assert.Equal(t, kafka.Topics.InventoryUpdates, stub.topic)
	require.NotNil(t, stub.handler)

	require.NoError(t, consumer.Close())
	assert.True(t, stub.closed)
}

func TestHandle_ValidEventReachesStorefront(t *testing.T) {
	consumer, stub, storefront := newConsumerFixture(t, true)
	require.NoError(t, consumer.Start(context.Background()))

	err := stub.handler(context.Background(), kafka.Inbound{
		Topic: kafka.Topics.InventoryUpdates,
		Value: []byte(`{"productId":501,"quantity":8,"locationId":1}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, storefront.calls)
}

func TestHandle_ContractViolationIsSkipped(t *testing.T) {
	consumer, stub, storefront := newConsumerFixture(t, true)
	require.NoError(t, consumer.Start(context.Background()))

	err := stub.handler(context.Background(), kafka.Inbound{
		Topic: kafka.Topics.InventoryUpdates,
		Value: []byte(`{"productId":501,"quantity":8,"locationId":1,"delta":-2}`),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, kafka.ErrSkipMessage)
	assert.Equal(t, 0, storefront.calls)
}

func TestHandle_NilValidatorFallsBackToServiceValidation(t *testing.T) {
	consumer, stub, storefront := newConsumerFixture(t, false)
	require.NoError(t, consumer.Start(context.Background()))

	err := stub.handler(context.Background(), kafka.Inbound{
		Topic: kafka.Topics.InventoryUpdates,
		Value: []byte(`{"productId":0,"quantity":3,"locationId":10}`),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, kafka.ErrSkipMessage)
	assert.Equal(t, 0, storefront.calls)
}
