package auth

import (
	"context"
	"errors"

	"flexvault/internal/domain/model"
	"flexvault/internal/repository"
)

// トークンは有効だがユーザーが消えている
var ErrUserNotFound = errors.New("user not found")

type MeUsecase struct {
	userRepo repository.UserRepository
}

func NewMeUsecase(userRepo repository.UserRepository) *MeUsecase {
	return &MeUsecase{userRepo: userRepo}
}

func (u *MeUsecase) Execute(ctx context.Context, p model.Principal) (model.User, error) {
	user, err := u.userRepo.FindByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return *user, nil
}
