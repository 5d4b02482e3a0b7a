package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

// OrderService serves order detail for the confirmation page and the
// signed-in user's order history.
type OrderService interface {
	GetOrder(ctx context.Context, orderNumber string) (*models.Order, []*models.OrderItem, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, []*models.OrderItem, error)
	ListUserOrders(ctx context.Context, userID int64) ([]*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{log: log, orderRepo: orderRepo}
}

func (s *orderService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, []*models.OrderItem, error) {
	const op = "service.OrderService.GetOrder"

	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}
	return order, items, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListUserOrders"

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id int64) (*models.Order, []*models.OrderItem, error) {
	const op = "service.OrderService.GetOrderByID"

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}
	return order, items, nil
}
