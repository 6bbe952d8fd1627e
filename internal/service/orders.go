package service

import (
	"context"
	"errors"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
)

// GetOrder возвращает заказ покупателя по трек-номеру.
func (s *Service) GetOrder(ctx context.Context, trackingNumber, userPublicID string) (*model.Order, error) {
	u, err := s.repo.GetUserByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, userLookupError(err)
	}

	o, err := s.repo.GetOrderByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, orderLookupError(err)
	}
	if o.UserID != u.ID && o.ReceiverID != u.ID {
		return nil, apperror.NotFound("Order not found")
	}
	return o, nil
}

// ListOrders возвращает заказы покупателя.
func (s *Service) ListOrders(ctx context.Context, userPublicID string) ([]model.Order, error) {
	u, err := s.repo.GetUserByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, userLookupError(err)
	}
	res, err := s.repo.ListOrdersByUser(ctx, u.ID)
	if err != nil {
		return nil, apperror.Internal("Order lookup failed", err)
	}
	return res, nil
}

// UpdateOrderStatus меняет статус заказа. Разрешён только переход
// completed → cancelled и только покупателю. Переход проверяется в самом UPDATE,
// поэтому из двух одновременных отмен успешна одна.
func (s *Service) UpdateOrderStatus(ctx context.Context, trackingNumber, userPublicID string, status model.OrderStatus) (*model.Order, error) {
	if status != model.OrderStatusCancelled {
		return nil, apperror.BadRequest("Invalid status")
	}

	u, err := s.repo.GetUserByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, userLookupError(err)
	}

	o, err := s.repo.GetOrderByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, orderLookupError(err)
	}
	if o.UserID != u.ID {
		return nil, apperror.NotFound("Order not found")
	}
	if o.Status != model.OrderStatusCompleted {
		return nil, apperror.BadRequest("Invalid status")
	}

	if err := s.repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCompleted, status); err != nil {
		if errors.Is(err, repository.ErrOrderStatusChanged) {
			return nil, apperror.BadRequest("Invalid status")
		}
		return nil, orderLookupError(err)
	}
	o.Status = status
	return o, nil
}

func orderLookupError(err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return apperror.NotFound("Order not found")
	}
	return apperror.Internal("Order lookup failed", err)
}
