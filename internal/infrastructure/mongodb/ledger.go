package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
	pkgmongo "github.com/order-platform/order-management/pkg/mongodb"
	"github.com/order-platform/order-management/pkg/outbox"
)

// ErrOrderAlreadyExists signals a replayed webhook for an order that was
// already committed.
var ErrOrderAlreadyExists = errors.New("order already exists")

// LedgerRepository implements domain.OrderLedger. CommitOrder runs the
// whole acceptance as one MongoDB transaction: every line item's stock is
// decremented conditionally, the order document is inserted, and the
// outbound events are staged in the outbox. Any failure aborts the
// transaction, so no partial decrement ever survives.
type LedgerRepository struct {
	client     *pkgmongo.InstrumentedClient
	orders     *mongo.Collection
	inventory  *mongo.Collection
	outboxRepo outbox.Repository
	locationID int64
	logger     *logging.Logger
}

// NewLedgerRepository creates a LedgerRepository. locationID is the
// storefront location announced in inventory change events.
func NewLedgerRepository(
	client *pkgmongo.InstrumentedClient,
	outboxRepo outbox.Repository,
	locationID int64,
	logger *logging.Logger,
) *LedgerRepository {
	return &LedgerRepository{
		client:     client,
		orders:     client.Collection(ordersCollection).Raw(),
		inventory:  client.Collection(inventoryCollection).Raw(),
		outboxRepo: outboxRepo,
		locationID: locationID,
		logger:     logger.WithComponent("order_ledger"),
	}
}

// CommitOrder allocates stock for every line item and persists the order,
// all within one transaction. On success it returns the post-allocation
// available quantity per product; those absolute levels are what the staged
// events carry downstream.
func (r *LedgerRepository) CommitOrder(ctx context.Context, order *domain.Order) (map[int64]int32, error) {
	levels := make(map[int64]int32, len(order.LineItems))

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, item := range order.LineItems {
			level, err := r.allocate(sessCtx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			levels[item.ProductID] = level
		}

		order.UpdatedAt = time.Now().UTC()
		if _, err := r.orders.InsertOne(sessCtx, order); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: order %d", ErrOrderAlreadyExists, order.ID)
			}
			return fmt.Errorf("inserting order: %w", err)
		}

		events, err := r.buildOutboxEvents(order, levels)
		if err != nil {
			return err
		}
		if err := r.outboxRepo.SaveAll(sessCtx, events); err != nil {
			return fmt.Errorf("staging outbox events: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).Info("order committed to ledger",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"line_items", len(order.LineItems))

	return levels, nil
}

// allocate performs the conditional decrement for one line item and returns
// the post-allocation available quantity. The availability guard in the
// filter makes the decrement atomic per product; two racing allocations
// can never both succeed past the available stock.
func (r *LedgerRepository) allocate(sessCtx mongo.SessionContext, productID int64, quantity int32) (int32, error) {
	filter := bson.M{
		"_id":               productID,
		"availableQuantity": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{
			"availableQuantity": -quantity,
			"reservedQuantity":  quantity,
		},
		"$set": bson.M{"lastUpdated": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.InventoryRecord
	err := r.inventory.FindOneAndUpdate(sessCtx, filter, update, opts).Decode(&updated)
	if err == nil {
		return updated.AvailableQuantity, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("allocating product %d: %w", productID, err)
	}

	// No match: either the product is unknown or the stock is short.
	var existing domain.InventoryRecord
	err = r.inventory.FindOne(sessCtx, bson.M{"_id": productID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, domain.NewProductNotFoundError(productID)
	}
	if err != nil {
		return 0, fmt.Errorf("inspecting product %d: %w", productID, err)
	}
	return 0, domain.NewInsufficientStockError(productID, quantity, existing.AvailableQuantity)
}

// buildOutboxEvents stages one inventory change per line item plus the
// order accepted announcement.
func (r *LedgerRepository) buildOutboxEvents(order *domain.Order, levels map[int64]int32) ([]*outbox.OutboxEvent, error) {
	events := make([]*outbox.OutboxEvent, 0, len(order.LineItems)+1)

	for _, item := range order.LineItems {
		change := domain.InventoryChangeEvent{
			ProductID:  item.ProductID,
			Quantity:   levels[item.ProductID],
			LocationID: r.locationID,
		}
		event, err := outbox.NewOutboxEvent(
			strconv.FormatInt(item.ProductID, 10),
			"Inventory",
			kafka.Topics.InventoryUpdates,
			change,
		)
		if err != nil {
			return nil, fmt.Errorf("building inventory event: %w", err)
		}
		events = append(events, event)
	}

	accepted := domain.NewOrderAcceptedEvent(order)
	event, err := outbox.NewOutboxEvent(
		strconv.FormatInt(order.ID, 10),
		"Order",
		kafka.Topics.OrdersEvents,
		accepted,
	)
	if err != nil {
		return nil, fmt.Errorf("building order accepted event: %w", err)
	}
	events = append(events, event)

	return events, nil
}
