package usecase

import (
	"context"
	"time"

	"flexvault/internal/domain/model"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 商品の検索インデックス。未設定ならnilで、検索はストアで行う
type ItemIndex interface {
	IndexItem(ctx context.Context, it model.Item) error
	DeleteItem(ctx context.Context, id string) error
	SearchIDs(ctx context.Context, term string, size int) ([]string, error)
}

// 注文確定の通知。失敗しても注文は成立している
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o model.Order) error
}
