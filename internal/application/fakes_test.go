package application

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/metrics"
)

func newTestLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(metrics.DefaultConfig("test"))
}

type fakeOrderRepository struct {
	orders map[int64]*domain.Order
	err    error
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: make(map[int64]*domain.Order)}
}

func (r *fakeOrderRepository) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	if r.err != nil {
		return nil, r.err
	}
	order, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	for _, order := range r.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepository) ExistsCompleted(ctx context.Context, orderID int64) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	order, ok := r.orders[orderID]
	return ok && order.Status == domain.StatusFulfilled, nil
}

func (r *fakeOrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus, pagination domain.Pagination) ([]*domain.Order, error) {
	var matched []*domain.Order
	for _, order := range r.orders {
		if order.Status == status {
			matched = append(matched, order)
		}
	}
	return matched, nil
}

func (r *fakeOrderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (r *fakeOrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	var count int64
	for _, order := range r.orders {
		if filter.Status == nil || order.Status == *filter.Status {
			count++
		}
	}
	return count, nil
}

type fakeInventoryRepository struct {
	records map[int64]*domain.InventoryRecord
	err     error
}

func newFakeInventoryRepository(records ...*domain.InventoryRecord) *fakeInventoryRepository {
	repo := &fakeInventoryRepository{records: make(map[int64]*domain.InventoryRecord)}
	for _, record := range records {
		repo.records[record.ProductID] = record
	}
	return repo
}

func (r *fakeInventoryRepository) FindByProductID(ctx context.Context, productID int64) (*domain.InventoryRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	record, ok := r.records[productID]
	if !ok {
		return nil, errors.New("product not found")
	}
	return record, nil
}

func (r *fakeInventoryRepository) FindByProductIDs(ctx context.Context, productIDs []int64) (map[int64]*domain.InventoryRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	found := make(map[int64]*domain.InventoryRecord)
	for _, id := range productIDs {
		if record, ok := r.records[id]; ok {
			found[id] = record
		}
	}
	return found, nil
}

func (r *fakeInventoryRepository) Upsert(ctx context.Context, record *domain.InventoryRecord) error {
	r.records[record.ProductID] = record
	return nil
}

type fakeLedger struct {
	committed []*domain.Order
	levels    map[int64]int32
	err       error
}

func (l *fakeLedger) CommitOrder(ctx context.Context, order *domain.Order) (map[int64]int32, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.committed = append(l.committed, order)
	return l.levels, nil
}

type fakeFulfillmentGateway struct {
	mu       sync.Mutex
	requests []FulfillmentRequest
	err      error
	called   chan struct{}
}

func newFakeFulfillmentGateway() *fakeFulfillmentGateway {
	return &fakeFulfillmentGateway{called: make(chan struct{}, 8)}
}

func (g *fakeFulfillmentGateway) DispatchOrder(ctx context.Context, req FulfillmentRequest) error {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	g.called <- struct{}{}
	return g.err
}

func (g *fakeFulfillmentGateway) Requests() []FulfillmentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]FulfillmentRequest(nil), g.requests...)
}

type fakeStorefrontGateway struct {
	mu    sync.Mutex
	calls []storefrontCall
	err   error
}

type storefrontCall struct {
	locationID      int64
	inventoryItemID int64
	available       int32
}

func (g *fakeStorefrontGateway) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int32) error {
	if g.err != nil {
		return g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, storefrontCall{locationID, inventoryItemID, available})
	return nil
}

func (g *fakeStorefrontGateway) Calls() []storefrontCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]storefrontCall(nil), g.calls...)
}
