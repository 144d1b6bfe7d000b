package repository

import (
	"context"
	"errors"
	"time"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 同一商品は数量加算
// INSERT ... ON CONFLICT (user_id, item_id) DO UPDATE で1文にまとめる
func (r *CartGormRepository) AddOrIncrement(ctx context.Context, entry model.CartEntry) (model.CartEntry, error) {
	if entry.Quantity <= 0 {
		return model.CartEntry{}, errors.New("invalid quantity")
	}
	if !isUUID(entry.ItemID) {
		return model.CartEntry{}, repo.ErrNotFound
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.Item = nil

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_entries.quantity + EXCLUDED.quantity"),
				"updated_at": now,
			}),
		}).
		Create(&entry).Error
	if err != nil {
		// 商品が存在しない
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return model.CartEntry{}, repo.ErrNotFound
		}
		return model.CartEntry{}, translateError(err)
	}

	// 既存行が更新された場合はIDが違うので取り直す
	var saved model.CartEntry
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ? AND item_id = ?", entry.UserID, entry.ItemID).
		First(&saved).Error; err != nil {
		return model.CartEntry{}, translateError(err)
	}
	return saved, nil
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByUserID(ctx context.Context, userID string) ([]model.CartEntry, error) {
	var entries []model.CartEntry

	if err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ?", userID).
		Order("created_at asc").Order("id asc").
		Find(&entries).Error; err != nil {
		return []model.CartEntry{}, err
	}

	return entries, nil
}

// checkout中は明細をSELECT ... FOR UPDATEで押さえる
func (r *CartGormRepository) ListByUserIDForUpdate(ctx context.Context, userID string) ([]model.CartEntry, error) {
	var entries []model.CartEntry

	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Item").
		Where("user_id = ?", userID).
		Order("created_at asc").Order("id asc").
		Find(&entries).Error; err != nil {
		return []model.CartEntry{}, err
	}

	return entries, nil
}

// 明細の数量を更新（本人の明細のみ）
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, userID string, entryID string, qty int64) (model.CartEntry, error) {
	if !isUUID(entryID) {
		return model.CartEntry{}, repo.ErrNotFound
	}
	res := r.db.WithContext(ctx).
		Model(&model.CartEntry{}).
		Where("id = ? AND user_id = ?", entryID, userID).
		Updates(map[string]interface{}{
			"quantity":   qty,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return model.CartEntry{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.CartEntry{}, repo.ErrNotFound
	}

	var e model.CartEntry
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Where("id = ?", entryID).
		First(&e).Error; err != nil {
		return model.CartEntry{}, translateError(err)
	}
	return e, nil
}

// 明細を削除
func (r *CartGormRepository) Delete(ctx context.Context, userID string, entryID string) error {
	if !isUUID(entryID) {
		return repo.ErrNotFound
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&model.CartEntry{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 注文に含めた明細だけ消す。checkout後に追加された明細は残る
func (r *CartGormRepository) DeleteByIDs(ctx context.Context, userID string, entryIDs []string) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, entryIDs).
		Delete(&model.CartEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
