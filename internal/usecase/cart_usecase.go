package usecase

import (
	"context"
	"errors"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"github.com/sirupsen/logrus"
)

// CartUsecase は /cart の業務ロジックです。
// 全操作がログイン中ユーザーのIDで絞られます。
type CartUsecase struct {
	cartRepo repo.CartRepository
	idGen    IDGenerator
	clock    Clock
	log      logrus.FieldLogger
}

func NewCartUsecase(cartRepo repo.CartRepository, idGen IDGenerator, clock Clock, log logrus.FieldLogger) *CartUsecase {
	return &CartUsecase{
		cartRepo: cartRepo,
		idGen:    idGen,
		clock:    clock,
		log:      log,
	}
}

// カートの応答
type CartResponse struct {
	Items []model.CartEntry `json:"items"`
}

// Add はカートに追加（同一商品は数量加算）。数量が1未満なら1
func (u *CartUsecase) Add(ctx context.Context, userID string, itemID string, quantity int64) (model.CartEntry, error) {
	if itemID == "" {
		return model.CartEntry{}, invalidArgument("item_id is required")
	}
	if quantity <= 0 {
		quantity = 1
	}

	now := u.clock.Now()
	entry, err := u.cartRepo.AddOrIncrement(ctx, model.CartEntry{
		ID:        u.idGen.NewID(),
		UserID:    userID,
		ItemID:    itemID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartEntry{}, notFound("item not found")
	}
	if err != nil {
		return model.CartEntry{}, internalError(u.log, err, "add to cart failed", logrus.Fields{"user_id": userID, "item_id": itemID})
	}
	return entry, nil
}

func (u *CartUsecase) List(ctx context.Context, userID string) (CartResponse, error) {
	entries, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, internalError(u.log, err, "list cart failed", logrus.Fields{"user_id": userID})
	}
	if entries == nil {
		entries = []model.CartEntry{}
	}
	return CartResponse{Items: entries}, nil
}

// 数量変更。他人の明細はNotFound
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID string, entryID string, quantity int64) (model.CartEntry, error) {
	if quantity < 1 {
		return model.CartEntry{}, invalidArgument("quantity must be at least 1")
	}

	entry, err := u.cartRepo.UpdateQuantity(ctx, userID, entryID, quantity)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartEntry{}, notFound("cart item not found")
	}
	if err != nil {
		return model.CartEntry{}, internalError(u.log, err, "update cart failed", logrus.Fields{"user_id": userID, "entry_id": entryID})
	}
	return entry, nil
}

func (u *CartUsecase) Remove(ctx context.Context, userID string, entryID string) error {
	err := u.cartRepo.Delete(ctx, userID, entryID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("cart item not found")
	}
	if err != nil {
		return internalError(u.log, err, "remove cart item failed", logrus.Fields{"user_id": userID, "entry_id": entryID})
	}
	return nil
}
