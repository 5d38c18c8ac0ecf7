package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/repository"
)

type OrderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetByNumber returns an order to the user who owns it or to the session
// that placed it.
func (s *OrderService) GetByNumber(ctx context.Context, number string, session model.Session) (*model.Order, error) {
	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	ownedByUser := session.LoggedIn && order.UserID != nil && *order.UserID == session.UserID
	if !ownedByUser && order.SessionID != session.ID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
