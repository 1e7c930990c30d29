package idempotency

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookDelivery tracks a single webhook delivery so redelivered webhooks
// can be answered from the stored response instead of reprocessing the order.
type WebhookDelivery struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	WebhookID   string             `bson:"webhookId"`
	ServiceID   string             `bson:"serviceId"`
	RequestPath string             `bson:"requestPath"`

	// Locking prevents two concurrent deliveries of the same webhook from
	// both reaching the order pipeline.
	LockedAt *time.Time `bson:"lockedAt,omitempty"`

	ResponseCode int    `bson:"responseCode,omitempty"`
	ResponseBody []byte `bson:"responseBody,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// IsCompleted returns true once a response has been stored.
func (d *WebhookDelivery) IsCompleted() bool {
	return d.CompletedAt != nil
}

// IsLocked returns true while another delivery is being processed.
func (d *WebhookDelivery) IsLocked() bool {
	return d.LockedAt != nil && d.CompletedAt == nil
}
