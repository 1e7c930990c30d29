package outbox

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-platform/order-management/pkg/kafka"
	"github.com/order-platform/order-management/pkg/logging"
	testsupport "github.com/order-platform/order-management/pkg/testing"
)

type fakeRepository struct {
	mu        sync.Mutex
	events    []*OutboxEvent
	published []string
	retried   map[string]string
	findErr   error
}

func newFakeRepository(events ...*OutboxEvent) *fakeRepository {
	return &fakeRepository{events: events, retried: make(map[string]string)}
}

func (r *fakeRepository) Save(ctx context.Context, event *OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRepository) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeRepository) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var unpublished []*OutboxEvent
	for _, event := range r.events {
		if !event.IsPublished() && len(unpublished) < limit {
			unpublished = append(unpublished, event)
		}
	}
	return unpublished, nil
}

func (r *fakeRepository) MarkPublished(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, eventID)
	now := time.Now()
	for _, event := range r.events {
		if event.ID == eventID {
			event.PublishedAt = &now
		}
	}
	return nil
}

func (r *fakeRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retried[eventID] = errorMsg
	for _, event := range r.events {
		if event.ID == eventID {
			event.RetryCount++
			event.LastError = errorMsg
		}
	}
	return nil
}

func (r *fakeRepository) DeletePublished(ctx context.Context, olderThan int64) error { return nil }

func (r *fakeRepository) GetByID(ctx context.Context, eventID string) (*OutboxEvent, error) {
	for _, event := range r.events {
		if event.ID == eventID {
			return event, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error) {
	var matched []*OutboxEvent
	for _, event := range r.events {
		if event.AggregateID == aggregateID {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

type fakeProducer struct {
	mu        sync.Mutex
	published []publishedMessage
	failTopic string
	failKey   string
	failures  int
}

type publishedMessage struct {
	topic string
	msg   kafka.Message
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic == p.failTopic {
		return errors.New("broker unavailable")
	}
	if p.failures > 0 && msg.Key == p.failKey {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, publishedMessage{topic, msg})
	return nil
}

func newPublisherTestLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

type testEvent struct {
	Name string `json:"name"`
	key  string
}

func (e testEvent) EventType() string    { return "test.event" }
func (e testEvent) PartitionKey() string { return e.key }

func createOutboxEvent(t *testing.T, topic, key string) *OutboxEvent {
	t.Helper()
	event, err := NewOutboxEvent("agg-1", "Inventory", topic, testEvent{Name: "stock changed", key: key})
	require.NoError(t, err)
	return event
}

func TestProcessEvents_PublishesAndMarks(t *testing.T) {
	first := createOutboxEvent(t, "orders.inventory.updates", "501")
	second := createOutboxEvent(t, "orders.inventory.updates", "502")
	repo := newFakeRepository(first, second)
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, nil)

	publisher.processEvents(context.Background())

	require.Len(t, producer.published, 2)
	assert.Equal(t, "orders.inventory.updates", producer.published[0].topic)
	assert.Equal(t, "501", producer.published[0].msg.Key)
	assert.Equal(t, "test.event", producer.published[0].msg.EventType)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, repo.published)
	assert.True(t, first.IsPublished())
	assert.True(t, second.IsPublished())
}

func TestProcessEvents_PublishedEventsAreNotResent(t *testing.T) {
	event := createOutboxEvent(t, "orders.inventory.updates", "501")
	repo := newFakeRepository(event)
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, nil)

	publisher.processEvents(context.Background())
	publisher.processEvents(context.Background())

	assert.Len(t, producer.published, 1)
}

func TestProcessEvents_FailureIncrementsRetry(t *testing.T) {
	event := createOutboxEvent(t, "orders.inventory.updates", "501")
	repo := newFakeRepository(event)
	producer := &fakeProducer{failTopic: "orders.inventory.updates"}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, nil)

	publisher.processEvents(context.Background())

	assert.Empty(t, repo.published)
	assert.Contains(t, repo.retried, event.ID)
	assert.Equal(t, 1, event.RetryCount)
	assert.False(t, event.IsPublished())
	assert.True(t, event.ShouldRetry())
}

func createNamedOutboxEvent(t *testing.T, topic, key, name string) *OutboxEvent {
	t.Helper()
	event, err := NewOutboxEvent("agg-1", "Inventory", topic, testEvent{Name: name, key: key})
	require.NoError(t, err)
	return event
}

func TestProcessEvents_FailureHoldsBackLaterEventsOnSameKey(t *testing.T) {
	older := createNamedOutboxEvent(t, "orders.inventory.updates", "501", "level 8")
	newer := createNamedOutboxEvent(t, "orders.inventory.updates", "501", "level 5")
	repo := newFakeRepository(older, newer)
	producer := &fakeProducer{failKey: "501", failures: 1}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, nil)

	publisher.processEvents(context.Background())

	assert.Empty(t, producer.published)
	assert.Contains(t, repo.retried, older.ID)
	assert.NotContains(t, repo.retried, newer.ID)
	assert.False(t, newer.IsPublished())

	publisher.processEvents(context.Background())

	require.Len(t, producer.published, 2)
	assert.JSONEq(t, `{"name":"level 8"}`, string(producer.published[0].msg.Value))
	assert.JSONEq(t, `{"name":"level 5"}`, string(producer.published[1].msg.Value))
}

func TestProcessEvents_FailureDoesNotHoldBackOtherKeys(t *testing.T) {
	blocked := createOutboxEvent(t, "orders.inventory.updates", "501")
	unrelated := createOutboxEvent(t, "orders.inventory.updates", "502")
	repo := newFakeRepository(blocked, unrelated)
	producer := &fakeProducer{failKey: "501", failures: 1}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, nil)

	publisher.processEvents(context.Background())

	require.Len(t, producer.published, 1)
	assert.Equal(t, "502", producer.published[0].msg.Key)
	assert.True(t, unrelated.IsPublished())
	assert.False(t, blocked.IsPublished())
}

func TestProcessEvents_RespectsBatchSize(t *testing.T) {
	repo := newFakeRepository(
		createOutboxEvent(t, "orders.inventory.updates", "1"),
		createOutboxEvent(t, "orders.inventory.updates", "2"),
		createOutboxEvent(t, "orders.inventory.updates", "3"),
	)
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    2,
	})

	publisher.processEvents(context.Background())

	assert.Len(t, producer.published, 2)
}

func TestPublisher_StartStop(t *testing.T) {
	repo := newFakeRepository(createOutboxEvent(t, "orders.inventory.updates", "501"))
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, &PublisherConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	require.NoError(t, publisher.Start(context.Background()))
	assert.Error(t, publisher.Start(context.Background()))
	assert.True(t, publisher.IsRunning())

	testsupport.AssertEventually(t, func() bool {
		producer.mu.Lock()
		defer producer.mu.Unlock()
		return len(producer.published) == 1
	}, time.Second, "outbox event should be published")

	require.NoError(t, publisher.Stop())
	assert.False(t, publisher.IsRunning())
	assert.Equal(t, 1, publisher.Stats()["published"])
}

func TestPublisher_StatsWhileRunning(t *testing.T) {
	repo := newFakeRepository(
		createOutboxEvent(t, "orders.inventory.updates", "501"),
		createOutboxEvent(t, "orders.inventory.updates", "502"),
	)
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, newPublisherTestLogger(), nil, &PublisherConfig{
		PollInterval: 5 * time.Millisecond,
		BatchSize:    10,
	})

	require.NoError(t, publisher.Start(context.Background()))

	testsupport.AssertEventually(t, func() bool {
		return publisher.Stats()["published"] == 2
	}, time.Second, "counters should be readable while the publisher runs")

	require.NoError(t, publisher.Stop())
	assert.Equal(t, 0, publisher.Stats()["failed"])
}
