package repository

import (
	"context"

	"flexvault/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 並び替えに使える列
const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortName      = "name"
	SortBrand     = "brand"
	SortCategory  = "category"
	SortDiscount  = "discount"
	SortStock     = "stock"
)

// 一覧検索。SortByは上の定数のどれか
type ItemListQuery struct {
	Category *model.Category
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
	Search   string
	SellerID *string
	SortBy   string
	Desc     bool
	Offset   int
	Limit    int
}

// 商品の永続化（保存・取得）だけを約束。
type ItemRepository interface {
	List(ctx context.Context, q ItemListQuery) ([]model.Item, int64, error)
	FindByID(ctx context.Context, id string) (model.Item, error)
	// 指定順のまま返す。存在しないIDは飛ばす
	FindByIDs(ctx context.Context, ids []string) ([]model.Item, error)

	Create(ctx context.Context, item model.Item) (model.Item, error)
	Update(ctx context.Context, item model.Item) error
	Delete(ctx context.Context, id string) error
}
