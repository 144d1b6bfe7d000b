package repository

import (
	"context"
	"errors"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 明細はposition順
func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("order_lines.position asc")
}

// 注文と明細をまとめて保存（gormのassociation保存）
func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		order.Lines[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderGormRepository) FindByUserAndID(ctx context.Context, userID string, orderID string) (model.Order, error) {
	if !isUUID(orderID) {
		return model.Order{}, repo.ErrNotFound
	}
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc").
		Find(&orders).Error
	if err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}
