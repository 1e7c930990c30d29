package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/order-platform/order-management/internal/domain"
	pkgmongo "github.com/order-platform/order-management/pkg/mongodb"
)

const ordersCollection = "orders"

// OrderRepository implements domain.OrderRepository using MongoDB.
// Writes go through the ledger; this repository covers reads and status
// transitions.
type OrderRepository struct {
	collection *pkgmongo.InstrumentedCollection
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(client *pkgmongo.InstrumentedClient) *OrderRepository {
	collection := client.Collection(ordersCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "customer.email", Value: 1}},
		},
	}

	_, _ = collection.Raw().Indexes().CreateMany(ctx, indexes)

	return &OrderRepository{collection: collection}
}

// FindByID retrieves an order by its storefront ID
func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrderNumber retrieves an order by its order number
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderNumber": orderNumber}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ExistsCompleted reports whether a fulfilled order with this ID exists
func (r *OrderRepository) ExistsCompleted(ctx context.Context, orderID int64) (bool, error) {
	filter := bson.M{
		"_id":    orderID,
		"status": domain.StatusFulfilled,
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByStatus retrieves orders by status, newest first
func (r *OrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus, pagination domain.Pagination) ([]*domain.Order, error) {
	filter := bson.M{"status": status}
	opts := options.Find().
		SetSort(pkgmongo.SortDescending("createdAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	return r.findMany(ctx, filter, opts)
}

// UpdateStatus updates the order status
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	filter := bson.M{"_id": orderID}
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": pkgmongo.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// Count returns the total number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildFilter(filter))
}

func (r *OrderRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func buildFilter(filter domain.OrderFilter) bson.M {
	mongoFilter := bson.M{}

	if filter.Status != nil {
		mongoFilter["status"] = *filter.Status
	}
	if filter.OrderNumber != nil {
		mongoFilter["orderNumber"] = *filter.OrderNumber
	}

	created := bson.M{}
	if filter.FromDate != nil {
		created["$gte"] = *filter.FromDate
	}
	if filter.ToDate != nil {
		created["$lte"] = *filter.ToDate
	}
	if len(created) > 0 {
		mongoFilter["createdAt"] = created
	}

	return mongoFilter
}
