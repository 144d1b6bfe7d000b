package middleware

import (
	"net/http"
	"strings"

	"flexvault/internal/domain/model"
	auth "flexvault/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const CtxPrincipalKey = "principal" // model.Principal

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(verifier auth.AccessTokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Bearer形式か確認してtokenを抜く
			rawToken := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("access token required"))
			}

			//署名・期限・roleを検証する
			p, err := verifier.Verify(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid or expired token"))
			}

			//contextへ保存
			c.Set(CtxPrincipalKey, p)

			return next(c)
		}
	}
}

// AuthJWTが入れたprincipalを取り出す
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(CtxPrincipalKey).(model.Principal)
	if !ok || p.UserID == "" {
		return model.Principal{}, false
	}
	return p, true
}

func bearerToken(authz string) string {
	parts := strings.SplitN(strings.TrimSpace(authz), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
