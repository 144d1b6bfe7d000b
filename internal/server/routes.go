package server

import (
	"flexvault/internal/handler"

	"github.com/labstack/echo/v4"
)

// /api 配下に各ハンドラのルートを登録
func RegisterRoutes(e *echo.Echo, h Handlers, authMW echo.MiddlewareFunc, rateLimit echo.MiddlewareFunc) {
	e.GET("/", handler.Health)

	api := e.Group("/api")
	h.Auth.RegisterRoutes(api, authMW, rateLimit)
	h.Items.RegisterRoutes(api, authMW)
	h.Cart.RegisterRoutes(api, authMW)
	h.Orders.RegisterRoutes(api, authMW)
}
