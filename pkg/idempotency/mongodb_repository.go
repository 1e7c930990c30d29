package idempotency

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const webhookDeliveriesCollection = "webhook_deliveries"

// MongoDeliveryRepository implements DeliveryRepository using MongoDB
type MongoDeliveryRepository struct {
	collection *mongo.Collection
}

// NewMongoDeliveryRepository creates a MongoDB-backed delivery repository
func NewMongoDeliveryRepository(db *mongo.Database) *MongoDeliveryRepository {
	return &MongoDeliveryRepository{
		collection: db.Collection(webhookDeliveriesCollection),
	}
}

// AcquireLock upserts the delivery document and sets its lock timestamp.
func (r *MongoDeliveryRepository) AcquireLock(ctx context.Context, delivery *WebhookDelivery) (*WebhookDelivery, bool, error) {
	now := time.Now().UTC()
	delivery.LockedAt = &now

	filter := bson.M{
		"serviceId": delivery.ServiceID,
		"webhookId": delivery.WebhookID,
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"webhookId":   delivery.WebhookID,
			"serviceId":   delivery.ServiceID,
			"requestPath": delivery.RequestPath,
			"createdAt":   delivery.CreatedAt,
			"expiresAt":   delivery.ExpiresAt,
		},
		"$set": bson.M{
			"lockedAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result WebhookDelivery
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, false, err
	}

	isNew := result.CompletedAt == nil && result.CreatedAt.Equal(delivery.CreatedAt)

	return &result, isNew, nil
}

// StoreResponse records the response and releases the lock.
func (r *MongoDeliveryRepository) StoreResponse(ctx context.Context, deliveryID string, responseCode int, responseBody []byte) error {
	objID, err := primitive.ObjectIDFromHex(deliveryID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"responseCode": responseCode,
			"responseBody": responseBody,
			"completedAt":  now,
		},
		"$unset": bson.M{"lockedAt": ""},
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

// ReleaseLock releases the lock without completing the delivery.
func (r *MongoDeliveryRepository) ReleaseLock(ctx context.Context, deliveryID string) error {
	objID, err := primitive.ObjectIDFromHex(deliveryID)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$unset": bson.M{"lockedAt": ""},
	})
	return err
}

// Get retrieves a delivery by webhook ID and service.
func (r *MongoDeliveryRepository) Get(ctx context.Context, webhookID, serviceID string) (*WebhookDelivery, error) {
	filter := bson.M{
		"serviceId": serviceID,
		"webhookId": webhookID,
	}

	var result WebhookDelivery
	if err := r.collection.FindOne(ctx, filter).Decode(&result); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &result, nil
}

// Clean removes expired deliveries.
func (r *MongoDeliveryRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

// EnsureIndexes creates the unique lookup index and the TTL index.
func (r *MongoDeliveryRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "serviceId", Value: 1},
				{Key: "webhookId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_service_webhook"),
		},
		{
			Keys: bson.D{
				{Key: "expiresAt", Value: 1},
			},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
