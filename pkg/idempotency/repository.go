package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no delivery exists for a webhook ID.
var ErrNotFound = errors.New("idempotency: delivery not found")

// DeliveryRepository stores webhook delivery records.
type DeliveryRepository interface {
	// AcquireLock upserts the delivery and locks it. It returns the stored
	// delivery and whether this call created it.
	AcquireLock(ctx context.Context, delivery *WebhookDelivery) (*WebhookDelivery, bool, error)

	// StoreResponse records the final response and releases the lock.
	StoreResponse(ctx context.Context, deliveryID string, responseCode int, responseBody []byte) error

	// ReleaseLock releases the lock without completing the delivery.
	ReleaseLock(ctx context.Context, deliveryID string) error

	// Get retrieves a delivery by webhook ID and service.
	Get(ctx context.Context, webhookID, serviceID string) (*WebhookDelivery, error)

	// Clean removes deliveries that expired before the given time.
	Clean(ctx context.Context, before time.Time) (int64, error)
}
