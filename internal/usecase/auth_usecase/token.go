package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"flexvault/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

const AccessTokenTTL = 24 * time.Hour

// 署名・期限・roleのどれかが不正
var ErrInvalidToken = errors.New("invalid or expired token")

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(p model.Principal, now time.Time) (token string, expiresAt time.Time, err error)
}

// JWTを検証する約束
type AccessTokenVerifier interface {
	Verify(token string) (model.Principal, error)
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// HS256のJWT
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret []byte, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = AccessTokenTTL
	}
	return &JWTIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// 開発用。再起動すると全トークンが無効になる
func NewEphemeralSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (i *JWTIssuer) Issue(p model.Principal, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)

	claims := accessClaims{
		Email: p.Email,
		Role:  string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// HS256以外・期限切れ・expなし・未知のroleは全てErrInvalidToken
func (i *JWTIssuer) Verify(token string) (model.Principal, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, ok := model.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return model.Principal{}, ErrInvalidToken
	}

	return model.Principal{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}
