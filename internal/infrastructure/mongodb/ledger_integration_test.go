package mongodb

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
	pkgmongo "github.com/order-platform/order-management/pkg/mongodb"
	"github.com/order-platform/order-management/pkg/outbox"
	outboxMongo "github.com/order-platform/order-management/pkg/outbox/mongodb"
	testsupport "github.com/order-platform/order-management/pkg/testing"
)

const testLocationID = int64(1)

type LedgerIntegrationTestSuite struct {
	suite.Suite
	ctx            context.Context
	mongoContainer *testsupport.MongoDBContainer
	client         *pkgmongo.InstrumentedClient
	outboxRepo     outbox.Repository
	ledger         *LedgerRepository
	orderRepo      *OrderRepository
	inventoryRepo  *InventoryRepository
}

func (s *LedgerIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testsupport.NewMongoDBContainer(s.ctx)
	s.Require().NoError(err)
	s.mongoContainer = container

	rawClient, err := pkgmongo.NewClient(s.ctx, &pkgmongo.Config{
		URI:            container.URI,
		Database:       "oms_test",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	})
	s.Require().NoError(err)

	logConfig := logging.DefaultConfig("test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)

	s.client = pkgmongo.NewInstrumentedClient(rawClient, metrics.New(metrics.DefaultConfig("test")), logger)
	s.outboxRepo = outboxMongo.NewOutboxRepository(s.client.Database())
	s.ledger = NewLedgerRepository(s.client, s.outboxRepo, testLocationID, logger)
	s.orderRepo = NewOrderRepository(s.client)
	s.inventoryRepo = NewInventoryRepository(s.client)
}

func (s *LedgerIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Close(s.ctx))
	}
}

func (s *LedgerIntegrationTestSuite) TearDownTest() {
	db := s.client.Database()
	db.Collection(ordersCollection).DeleteMany(s.ctx, bson.M{})
	db.Collection(inventoryCollection).DeleteMany(s.ctx, bson.M{})
	db.Collection(outboxMongo.DefaultCollectionName).DeleteMany(s.ctx, bson.M{})
}

func TestLedgerIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(LedgerIntegrationTestSuite))
}

func (s *LedgerIntegrationTestSuite) seedInventory(records ...*domain.InventoryRecord) {
	for _, record := range records {
		s.Require().NoError(s.inventoryRepo.Upsert(s.ctx, record))
	}
}

func (s *LedgerIntegrationTestSuite) stockLevel(productID int64) *domain.InventoryRecord {
	record, err := s.inventoryRepo.FindByProductID(s.ctx, productID)
	s.Require().NoError(err)
	return record
}

func (s *LedgerIntegrationTestSuite) outboxEvents() []*outbox.OutboxEvent {
	events, err := s.outboxRepo.FindUnpublished(s.ctx, 100)
	s.Require().NoError(err)
	return events
}

func createLedgerTestOrder(id int64) *domain.Order {
	return &domain.Order{
		ID:          id,
		OrderNumber: "1001",
		Customer: domain.Customer{
			Email:     "jane.doe@example.com",
			FirstName: "Jane",
			LastName:  "Doe",
		},
		LineItems: []domain.OrderLineItem{
			{ID: 1, ProductID: 501, Quantity: 2, SKU: "WR-BLK-42", Title: "Winter Runner"},
			{ID: 2, ProductID: 502, Quantity: 1, SKU: "TD-WHT-41", Title: "Trail Daypack"},
		},
		ShippingAddress: domain.Address{Address1: "123 Main St", City: "Ottawa"},
		FinancialStatus: domain.FinancialPaid,
		Status:          domain.StatusProcessing,
		CreatedAt:       time.Now().UTC(),
	}
}

func (s *LedgerIntegrationTestSuite) TestCommitOrder_AllocatesAndPersists() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", Title: "Winter Runner", AvailableQuantity: 10, TotalQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", Title: "Trail Daypack", AvailableQuantity: 5, TotalQuantity: 5},
	)
	order := createLedgerTestOrder(9001)

	levels, err := s.ledger.CommitOrder(s.ctx, order)

	s.Require().NoError(err)
	s.Equal(int32(8), levels[501])
	s.Equal(int32(4), levels[502])

	first := s.stockLevel(501)
	s.Equal(int32(8), first.AvailableQuantity)
	s.Equal(int32(2), first.ReservedQuantity)

	second := s.stockLevel(502)
	s.Equal(int32(4), second.AvailableQuantity)
	s.Equal(int32(1), second.ReservedQuantity)

	stored, err := s.orderRepo.FindByID(s.ctx, 9001)
	s.Require().NoError(err)
	s.Equal(domain.StatusProcessing, stored.Status)
	s.Equal("1001", stored.OrderNumber)
	s.Len(stored.LineItems, 2)
}

func (s *LedgerIntegrationTestSuite) TestCommitOrder_StagesOutboxEvents() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", AvailableQuantity: 5},
	)
	order := createLedgerTestOrder(9001)

	_, err := s.ledger.CommitOrder(s.ctx, order)
	s.Require().NoError(err)

	events := s.outboxEvents()
	s.Require().Len(events, 3)

	byType := make(map[string][]*outbox.OutboxEvent)
	for _, event := range events {
		byType[event.EventType] = append(byType[event.EventType], event)
	}
	s.Len(byType[domain.EventTypeInventoryUpdated], 2)
	s.Len(byType[domain.EventTypeOrderAccepted], 1)

	levels := make(map[int64]int32)
	for _, event := range byType[domain.EventTypeInventoryUpdated] {
		var change domain.InventoryChangeEvent
		s.Require().NoError(json.Unmarshal(event.Payload, &change))
		s.Equal(testLocationID, change.LocationID)
		levels[change.ProductID] = change.Quantity
	}
	s.Equal(int32(8), levels[501])
	s.Equal(int32(4), levels[502])

	accepted := byType[domain.EventTypeOrderAccepted][0]
	s.Equal("9001", accepted.PartitionKey)
}

func (s *LedgerIntegrationTestSuite) TestCommitOrder_InsufficientStockRollsBack() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", AvailableQuantity: 0},
	)
	order := createLedgerTestOrder(9001)

	_, err := s.ledger.CommitOrder(s.ctx, order)

	s.Require().Error(err)
	allocErr, ok := domain.AsAllocationError(err)
	s.Require().True(ok)
	s.Equal(int64(502), allocErr.ProductID)
	s.False(allocErr.NotFound)

	s.Equal(int32(10), s.stockLevel(501).AvailableQuantity)
	s.Equal(int32(0), s.stockLevel(501).ReservedQuantity)

	_, err = s.orderRepo.FindByID(s.ctx, 9001)
	s.ErrorIs(err, domain.ErrOrderNotFound)
	s.Empty(s.outboxEvents())
}

func (s *LedgerIntegrationTestSuite) TestCommitOrder_UnknownProductRollsBack() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
	)
	order := createLedgerTestOrder(9001)

	_, err := s.ledger.CommitOrder(s.ctx, order)

	s.Require().Error(err)
	allocErr, ok := domain.AsAllocationError(err)
	s.Require().True(ok)
	s.Equal(int64(502), allocErr.ProductID)
	s.True(allocErr.NotFound)

	s.Equal(int32(10), s.stockLevel(501).AvailableQuantity)
	s.Empty(s.outboxEvents())
}

func (s *LedgerIntegrationTestSuite) TestCommitOrder_DuplicateOrder() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", AvailableQuantity: 5},
	)

	_, err := s.ledger.CommitOrder(s.ctx, createLedgerTestOrder(9001))
	s.Require().NoError(err)

	_, err = s.ledger.CommitOrder(s.ctx, createLedgerTestOrder(9001))

	s.Require().Error(err)
	s.ErrorIs(err, ErrOrderAlreadyExists)

	s.Equal(int32(8), s.stockLevel(501).AvailableQuantity)
	s.Len(s.outboxEvents(), 3)
}

func (s *LedgerIntegrationTestSuite) TestOrderRepository_ExistsCompleted() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", AvailableQuantity: 5},
	)
	_, err := s.ledger.CommitOrder(s.ctx, createLedgerTestOrder(9001))
	s.Require().NoError(err)

	completed, err := s.orderRepo.ExistsCompleted(s.ctx, 9001)
	s.Require().NoError(err)
	s.False(completed)

	s.Require().NoError(s.orderRepo.UpdateStatus(s.ctx, 9001, domain.StatusFulfilled))

	completed, err = s.orderRepo.ExistsCompleted(s.ctx, 9001)
	s.Require().NoError(err)
	s.True(completed)

	completed, err = s.orderRepo.ExistsCompleted(s.ctx, 404)
	s.Require().NoError(err)
	s.False(completed)
}

func (s *LedgerIntegrationTestSuite) TestOrderRepository_FindByStatus() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", AvailableQuantity: 5},
	)
	_, err := s.ledger.CommitOrder(s.ctx, createLedgerTestOrder(9001))
	s.Require().NoError(err)

	orders, err := s.orderRepo.FindByStatus(s.ctx, domain.StatusProcessing, domain.Pagination{Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(int64(9001), orders[0].ID)

	status := domain.StatusProcessing
	count, err := s.orderRepo.Count(s.ctx, domain.OrderFilter{Status: &status})
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *LedgerIntegrationTestSuite) TestInventoryRepository_FindByProductIDs() {
	s.seedInventory(
		&domain.InventoryRecord{ProductID: 501, SKU: "WR-BLK-42", AvailableQuantity: 10},
		&domain.InventoryRecord{ProductID: 502, SKU: "TD-WHT-41", AvailableQuantity: 5},
	)

	records, err := s.inventoryRepo.FindByProductIDs(s.ctx, []int64{501, 502, 999})
	s.Require().NoError(err)
	s.Len(records, 2)
	s.NotContains(records, int64(999))
	s.Equal("WR-BLK-42", records[501].SKU)
}
