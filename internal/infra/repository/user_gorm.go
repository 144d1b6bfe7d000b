package repository

import (
	"context"
	"errors"

	"flexvault/internal/domain/model"
	domainrepo "flexvault/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !isUUID(id) {
		return nil, domainrepo.ErrNotFound
	}
	var u model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

// uuid型の列に不正な文字列を渡すとpostgresがエラーにするので先に弾く
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// gormのエラーをrepositoryのエラーへ。TranslateError有効が前提
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainrepo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainrepo.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domainrepo.ErrConflict
	default:
		return err
	}
}
