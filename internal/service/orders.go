package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

// OrderQueryService is the read side: headers with nested items, filtered by
// any combination of order id, user id and status, newest first.
type OrderQueryService interface {
	List(ctx context.Context, filter storage.OrderFilter) ([]*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
}

type orderQueryService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderQueryService(log *slog.Logger, orderRepo storage.OrderStorage) OrderQueryService {
	return &orderQueryService{
		log:       log,
		orderRepo: orderRepo,
	}
}

const defaultPageSize = 50

func (s *orderQueryService) List(ctx context.Context, filter storage.OrderFilter) ([]*models.Order, error) {
	const op = "service.OrderQueryService.List"

	// Upstream defines no pagination contract; a keyset page keeps the
	// newest-first listing bounded.
	if filter.Limit <= 0 || filter.Limit > defaultPageSize {
		filter.Limit = defaultPageSize
	}

	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderQueryService) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	const op = "service.OrderQueryService.GetByID"

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		s.log.Error("failed to get order", slog.String("op", op), slog.Int64("orderID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	return order, nil
}
