package handler

import (
	"errors"
	"net/http"

	"flexvault/internal/usecase"
	auth "flexvault/internal/usecase/auth_usecase"
	"flexvault/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// usecaseの失敗種別 → HTTPステータス
func statusOf(kind usecase.Kind) int {
	switch kind {
	case usecase.KindInvalidArgument, usecase.KindConflict, usecase.KindInvalidState:
		return http.StatusBadRequest
	case usecase.KindUnauthenticated:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// authパッケージのsentinel → HTTPステータス
var authErrorStatus = []struct {
	err    error
	status int
}{
	{auth.ErrNameRequired, http.StatusBadRequest},
	{auth.ErrInvalidEmailFormat, http.StatusBadRequest},
	{auth.ErrPasswordTooShort, http.StatusBadRequest},
	{auth.ErrInvalidRole, http.StatusBadRequest},
	{auth.ErrEmailAlreadyExists, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusBadRequest},
	{auth.ErrAdminSignupDisabled, http.StatusForbidden},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrUserNotFound, http.StatusNotFound},
}

func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		status := statusOf(ae.Kind)
		if status == http.StatusInternalServerError {
			return c.JSON(status, ErrorResponse{Error: "internal error"})
		}
		return c.JSON(status, ErrorResponse{Error: ae.Message})
	}
	for _, m := range authErrorStatus {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, ErrorResponse{Error: m.err.Error()})
		}
	}

	//500
	log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bind/validateの失敗は400 + details。falseなら応答済み
func bindAndValidate(c echo.Context, dst interface{}) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: validator.ToDetails(err)})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: validator.ToDetails(err)})
	}
	return true, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "access token required"})
}
