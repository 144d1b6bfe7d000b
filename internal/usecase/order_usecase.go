package usecase

import (
	"context"
	"errors"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"github.com/sirupsen/logrus"
)

type OrderUsecase struct {
	orderRepo repo.OrderRepository
	log       logrus.FieldLogger
}

func NewOrderUsecase(orderRepo repo.OrderRepository, log logrus.FieldLogger) *OrderUsecase {
	return &OrderUsecase{orderRepo: orderRepo, log: log}
}

type OrderListResponse struct {
	Orders []model.Order `json:"orders"`
}

// 自分の注文を新しい順に
func (u *OrderUsecase) List(ctx context.Context, userID string) (OrderListResponse, error) {
	orders, err := u.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return OrderListResponse{}, internalError(u.log, err, "list orders failed", logrus.Fields{"user_id": userID})
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return OrderListResponse{Orders: orders}, nil
}

// 他人の注文は存在していてもNotFound
func (u *OrderUsecase) GetByID(ctx context.Context, userID string, orderID string) (model.Order, error) {
	o, err := u.orderRepo.FindByUserAndID(ctx, userID, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFound("order not found")
	}
	if err != nil {
		return model.Order{}, internalError(u.log, err, "find order failed", logrus.Fields{"user_id": userID, "order_id": orderID})
	}
	return o, nil
}
