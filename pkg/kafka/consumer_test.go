package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsumer() *Consumer {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	return NewConsumer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRecord(offset int64) segkafka.Message {
	return segkafka.Message{
		Topic:     Topics.InventoryUpdates,
		Partition: 0,
		Offset:    offset,
		Key:       []byte("501"),
		Value:     []byte(`{"productId":501}`),
	}
}

func TestHandleMessage_SuccessCommits(t *testing.T) {
	c := newTestConsumer()
	calls := 0

	commit := c.handleMessage(context.Background(), Topics.InventoryUpdates,
		func(ctx context.Context, msg Inbound) error {
			calls++
			return nil
		}, testRecord(7))

	assert.True(t, commit)
	assert.Equal(t, 1, calls)
}

func TestHandleMessage_SkipCommitsWithoutRetry(t *testing.T) {
	c := newTestConsumer()
	calls := 0

	commit := c.handleMessage(context.Background(), Topics.InventoryUpdates,
		func(ctx context.Context, msg Inbound) error {
			calls++
			return fmt.Errorf("%w: malformed payload", ErrSkipMessage)
		}, testRecord(7))

	assert.True(t, commit)
	assert.Equal(t, 1, calls)
}

func TestHandleMessage_FailureRetriesSameRecordInPlace(t *testing.T) {
	c := newTestConsumer()
	calls := 0
	var offsets []int64

	commit := c.handleMessage(context.Background(), Topics.InventoryUpdates,
		func(ctx context.Context, msg Inbound) error {
			calls++
			offsets = append(offsets, msg.Offset)
			if calls < 3 {
				return errors.New("storefront unavailable")
			}
			return nil
		}, testRecord(42))

	assert.True(t, commit)
	require.Equal(t, 3, calls)
	assert.Equal(t, []int64{42, 42, 42}, offsets)
}

func TestHandleMessage_ContextCancelDoesNotCommit(t *testing.T) {
	c := newTestConsumer()
	ctx, cancel := context.WithCancel(context.Background())

	commit := c.handleMessage(ctx, Topics.InventoryUpdates,
		func(ctx context.Context, msg Inbound) error {
			cancel()
			return errors.New("storefront unavailable")
		}, testRecord(42))

	assert.False(t, commit)
}
