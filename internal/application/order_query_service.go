package application

import (
	"context"
	"fmt"

	"github.com/order-platform/order-management/internal/domain"
	"github.com/order-platform/order-management/pkg/api"
	"github.com/order-platform/order-management/pkg/logging"
)

// OrderQueryService serves the read side: single order lookup and paged
// listings for operators.
type OrderQueryService struct {
	orders domain.OrderRepository
	logger *logging.Logger
}

// NewOrderQueryService creates an OrderQueryService.
func NewOrderQueryService(orders domain.OrderRepository, logger *logging.Logger) *OrderQueryService {
	return &OrderQueryService{
		orders: orders,
		logger: logger.WithComponent("order_query_service"),
	}
}

// GetOrder returns a single order by its storefront ID.
func (s *OrderQueryService) GetOrder(ctx context.Context, orderID int64) (*OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

// ListOrdersByStatus returns a page of orders in the given status.
func (s *OrderQueryService) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, page api.PageRequest) (*api.PageResponse[OrderDTO], error) {
	pagination := domain.Pagination{
		Page:     page.Page,
		PageSize: page.PageSize,
	}

	orders, err := s.orders.FindByStatus(ctx, status, pagination)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	total, err := s.orders.Count(ctx, domain.OrderFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, NewOrderDTO(order))
	}

	resp := api.NewPageResponse(dtos, page.Page, page.PageSize, total)
	return &resp, nil
}
