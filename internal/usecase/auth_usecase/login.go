package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"flexvault/internal/domain/model"
	"flexvault/internal/repository"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
}

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
	clock    Clock

	dummyOnce sync.Once
	dummyHash string
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	clock Clock,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
	}
}

// ログイン処理を実行する
// 未登録メールとパスワード違いは同じエラー
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (AuthOutput, error) {
	var out AuthOutput

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return out, ErrInvalidCredentials
	}

	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 未登録でも照合して応答時間を揃える
			u.verifier.Verify(in.Password, u.dummy())
			return out, ErrInvalidCredentials
		}
		return out, err
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, ErrInvalidCredentials
	}

	//AccessToken発行
	now := u.clock.Now()
	token, exp, err := u.issuer.Issue(model.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, now)
	if err != nil {
		return out, err
	}

	out.User = *user
	out.Token = token
	out.ExpiresAt = exp
	return out, nil
}

func (u *LoginUsecase) dummy() string {
	u.dummyOnce.Do(func() {
		h, err := u.hasher.Hash("flexvault-dummy-password")
		if err == nil {
			u.dummyHash = h
		}
	})
	return u.dummyHash
}
