package repository

import (
	"context"
	"errors"

	"flexvault/internal/domain/model"
)

var (
	// 対象が無い（または呼び出し元の所有でない）
	ErrNotFound = errors.New("not found")

	// 一意制約違反（email重複、idempotency key重複など）
	ErrDuplicate = errors.New("duplicate")

	// 参照先が無い、または同時更新で前提が崩れた
	ErrConflict = errors.New("conflict")
)

// ユーザーの保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。email重複はErrDuplicate
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//emailは保存されたまま（大文字小文字を区別）で比較
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
