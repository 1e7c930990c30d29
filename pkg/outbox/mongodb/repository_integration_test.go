package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/order-platform/order-management/pkg/outbox"
	testsupport "github.com/order-platform/order-management/pkg/testing"
)

type stockChangedEvent struct {
	ProductID int64 `json:"productId"`
	key       string
}

func (e stockChangedEvent) EventType() string    { return "inventory.updated" }
func (e stockChangedEvent) PartitionKey() string { return e.key }

type OutboxRepositoryIntegrationTestSuite struct {
	suite.Suite
	container *testsupport.MongoDBContainer
	client    *mongo.Client
	repo      *OutboxRepository
}

func TestOutboxRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxRepositoryIntegrationTestSuite))
}

func (s *OutboxRepositoryIntegrationTestSuite) SetupSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testsupport.NewMongoDBContainer(ctx)
	s.Require().NoError(err)
	s.container = container

	client, err := container.Client(ctx)
	s.Require().NoError(err)
	s.client = client

	s.repo = NewOutboxRepository(client.Database("oms_test"))
}

func (s *OutboxRepositoryIntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.client != nil {
		_ = s.client.Disconnect(ctx)
	}
	if s.container != nil {
		_ = s.container.Close(ctx)
	}
}

func (s *OutboxRepositoryIntegrationTestSuite) TearDownTest() {
	_, err := s.client.Database("oms_test").Collection(DefaultCollectionName).DeleteMany(context.Background(), bson.M{})
	s.Require().NoError(err)
}

func (s *OutboxRepositoryIntegrationTestSuite) createEvent(key string) *outbox.OutboxEvent {
	event, err := outbox.NewOutboxEvent("order-9001", "Order", "orders.inventory.updates", stockChangedEvent{ProductID: 501, key: key})
	s.Require().NoError(err)
	return event
}

func (s *OutboxRepositoryIntegrationTestSuite) TestFindUnpublished_SkipsEventsPastOwnMaxRetries() {
	ctx := context.Background()

	healthy := s.createEvent("501")
	exhausted := s.createEvent("502")
	exhausted.MaxRetries = 2
	s.Require().NoError(s.repo.SaveAll(ctx, []*outbox.OutboxEvent{healthy, exhausted}))

	s.Require().NoError(s.repo.IncrementRetry(ctx, exhausted.ID, "broker unavailable"))
	s.Require().NoError(s.repo.IncrementRetry(ctx, exhausted.ID, "broker unavailable"))
	s.Require().NoError(s.repo.IncrementRetry(ctx, healthy.ID, "broker unavailable"))

	found, err := s.repo.FindUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(healthy.ID, found[0].ID)
	s.Equal(1, found[0].RetryCount)
}

func (s *OutboxRepositoryIntegrationTestSuite) TestFindUnpublished_ExcludesPublished() {
	ctx := context.Background()

	published := s.createEvent("501")
	pending := s.createEvent("502")
	s.Require().NoError(s.repo.SaveAll(ctx, []*outbox.OutboxEvent{published, pending}))
	s.Require().NoError(s.repo.MarkPublished(ctx, published.ID))

	found, err := s.repo.FindUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(pending.ID, found[0].ID)
}
