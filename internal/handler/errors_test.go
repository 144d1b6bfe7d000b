package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"flexvault/internal/usecase"
	auth "flexvault/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func writeErrorRecorder(err error) *httptest.ResponseRecorder {
	log := logrus.New()
	log.SetOutput(io.Discard)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = writeError(c, log, err)
	return rec
}

// Test: 種別ごとのステータス
func TestWriteError_Kinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{usecase.NewAppError(usecase.KindInvalidArgument, "bad"), http.StatusBadRequest, "bad"},
		{usecase.NewAppError(usecase.KindUnauthenticated, "who"), http.StatusUnauthorized, "who"},
		{usecase.NewAppError(usecase.KindForbidden, "no"), http.StatusForbidden, "no"},
		{usecase.NewAppError(usecase.KindNotFound, "gone"), http.StatusNotFound, "gone"},
		{usecase.NewAppError(usecase.KindConflict, "dup"), http.StatusBadRequest, "dup"},
		{usecase.NewAppError(usecase.KindInvalidState, "empty"), http.StatusBadRequest, "empty"},
		{usecase.NewAppError(usecase.KindInternal, "pq: secret"), http.StatusInternalServerError, "internal error"},
		{fmt.Errorf("wrap: %w", auth.ErrInvalidCredentials), http.StatusBadRequest, "invalid credentials"},
		{auth.ErrAdminSignupDisabled, http.StatusForbidden, auth.ErrAdminSignupDisabled.Error()},
		{auth.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		rec := writeErrorRecorder(tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.JSONEq(t, `{"error":"`+tc.body+`"}`, rec.Body.String())
	}
}
