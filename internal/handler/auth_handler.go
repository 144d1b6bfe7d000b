package handler

import (
	"net/http"

	"flexvault/internal/middleware"
	auth "flexvault/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	signupUC *auth.SignupUsecase // 会員登録usecase
	loginUC  *auth.LoginUsecase  // ログインusecase
	meUC     *auth.MeUsecase
	log      logrus.FieldLogger
}

// DIコンストラクタ
func NewAuthHandler(signupUC *auth.SignupUsecase, loginUC *auth.LoginUsecase, meUC *auth.MeUsecase, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{signupUC: signupUC, loginUC: loginUC, meUC: meUC, log: log}
}

// /auth/signup のリクエストボディ。
type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Role     string `json:"role"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Message string `json:"message"`
	auth.AuthOutput
}

// signup/loginはrateLimitを通す
func (h *AuthHandler) RegisterRoutes(g *echo.Group, authMW echo.MiddlewareFunc, rateLimit echo.MiddlewareFunc) {
	a := g.Group("/auth")
	a.POST("/signup", h.Signup, rateLimit)
	a.POST("/login", h.Login, rateLimit)
	a.GET("/me", h.Me, authMW)
}

// SignupはPOST /auth/signupのハンドラ
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.signupUC.Execute(c.Request().Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, authResponse{Message: "User created successfully", AuthOutput: out})
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, authResponse{Message: "Login successful", AuthOutput: out})
}

// MeはGET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.meUC.Execute(c.Request().Context(), p)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, user)
}
