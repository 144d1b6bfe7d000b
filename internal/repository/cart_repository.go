package repository

import (
	"context"

	"flexvault/internal/domain/model"
)

// カート明細。全操作がuser_idで絞られる
type CartRepository interface {
	// 同一商品は数量を加算（ストア側で原子的に）。加算後の明細を返す
	// 商品が無ければErrNotFound
	AddOrIncrement(ctx context.Context, entry model.CartEntry) (model.CartEntry, error)

	// Itemを結合して返す（古い順）
	ListByUserID(ctx context.Context, userID string) ([]model.CartEntry, error)

	// checkout用。明細を行ロックして返す
	ListByUserIDForUpdate(ctx context.Context, userID string) ([]model.CartEntry, error)

	UpdateQuantity(ctx context.Context, userID string, entryID string, qty int64) (model.CartEntry, error)
	Delete(ctx context.Context, userID string, entryID string) error

	// 指定した明細だけ削除し、削除件数を返す
	DeleteByIDs(ctx context.Context, userID string, entryIDs []string) (int64, error)
}
