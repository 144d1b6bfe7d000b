package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"flexvault/internal/domain/model"
	"flexvault/internal/repository"
)

const minPasswordLen = 6

// 会員登録の入力
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// 登録・ログインの出力
type AuthOutput struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

var (
	// 入力が不正
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidRole        = errors.New("invalid role")

	// 管理者登録は許可制
	ErrAdminSignupDisabled = errors.New("admin signup is not allowed")

	// 競合
	ErrEmailAlreadyExists = errors.New("user already exists")
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// SignupUsecaseは会員登録の処理。
type SignupUsecase struct {
	userRepo    repository.UserRepository
	hasher      PasswordHasher
	issuer      AccessTokenIssuer
	idGen       IDGenerator
	clock       Clock
	allowAdmins bool
}

// DI
func NewSignupUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	allowAdmins bool,
) *SignupUsecase {
	return &SignupUsecase{
		userRepo:    userRepo,
		hasher:      hasher,
		issuer:      issuer,
		idGen:       idGen,
		clock:       clock,
		allowAdmins: allowAdmins,
	}
}

// 会員登録実行。成功したらそのままログイン状態のトークンを返す
func (u *SignupUsecase) Execute(ctx context.Context, in SignupInput) (AuthOutput, error) {
	var out AuthOutput

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return out, ErrNameRequired
	}

	// emailの形式チェック
	email := strings.TrimSpace(in.Email)
	if !isValidEmailFormat(email) {
		return out, ErrInvalidEmailFormat
	}

	if len(in.Password) < minPasswordLen {
		return out, ErrPasswordTooShort
	}

	role, err := u.resolveRole(in.Role)
	if err != nil {
		return out, err
	}

	// email重複チェック
	existing, err := u.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return out, ErrEmailAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return out, err
	}

	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}

	now := u.clock.Now()
	user := &model.User{
		ID:           u.idGen.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hashed, // 平文は保存しない
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// DBへ保存。同時登録は一意制約で弾く
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return out, ErrEmailAlreadyExists
		}
		return out, err
	}

	token, exp, err := u.issuer.Issue(model.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, now)
	if err != nil {
		return out, err
	}

	out.User = *user
	out.Token = token
	out.ExpiresAt = exp
	return out, nil
}

// 空ならcustomer。adminは設定で許可された時だけ
func (u *SignupUsecase) resolveRole(s string) (model.Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return model.RoleCustomer, nil
	}
	role, ok := model.ParseRole(s)
	if !ok {
		return "", ErrInvalidRole
	}
	if role == model.RoleAdmin && !u.allowAdmins {
		return "", ErrAdminSignupDisabled
	}
	return role, nil
}

// メールチェック
func isValidEmailFormat(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	// "Name <a@b>" 形式は受けない
	return err == nil && addr.Address == email
}
