package repository

import (
	"context"

	"flexvault/internal/domain/model"
)

type OrderRepository interface {
	// 明細ごと保存。同じユーザー・同じidempotency keyはErrDuplicate
	Create(ctx context.Context, order *model.Order) error

	// userIDの注文だけを探す。他人の注文はErrNotFound
	FindByUserAndID(ctx context.Context, userID string, orderID string) (model.Order, error)

	// 新しい順
	ListByUserID(ctx context.Context, userID string) ([]model.Order, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error)
}
