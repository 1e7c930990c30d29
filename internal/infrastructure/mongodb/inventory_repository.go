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

const inventoryCollection = "inventory"

// Errors for inventory lookups
var ErrProductNotFound = errors.New("product not found")

// InventoryRepository implements domain.InventoryRepository using MongoDB.
// It serves reads and seeding; allocation mutates stock only through the
// ledger's conditional decrement.
type InventoryRepository struct {
	collection *pkgmongo.InstrumentedCollection
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(client *pkgmongo.InstrumentedClient) *InventoryRepository {
	collection := client.Collection(inventoryCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Raw().Indexes().CreateMany(ctx, indexes)

	return &InventoryRepository{collection: collection}
}

// FindByProductID retrieves a single stock position
func (r *InventoryRepository) FindByProductID(ctx context.Context, productID int64) (*domain.InventoryRecord, error) {
	var record domain.InventoryRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByProductIDs retrieves stock positions for a set of products.
// Unknown products are simply absent from the result map.
func (r *InventoryRepository) FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]*domain.InventoryRecord, error) {
	records := make(map[int64]*domain.InventoryRecord, len(productIDs))
	if len(productIDs) == 0 {
		return records, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*domain.InventoryRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	for _, record := range results {
		records[record.ProductID] = record
	}
	return records, nil
}

// Upsert writes a stock position
func (r *InventoryRepository) Upsert(ctx context.Context, record *domain.InventoryRecord) error {
	record.LastUpdated = pkgmongo.Now()

	filter := bson.M{"_id": record.ProductID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, record, opts)
	return err
}
