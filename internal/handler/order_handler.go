package handler

import (
	"net/http"

	"flexvault/internal/middleware"
	"flexvault/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// /ordersのHTTP。自分の注文だけ読める
type OrderHandler struct {
	uc  *usecase.OrderUsecase
	log logrus.FieldLogger
}

func NewOrderHandler(uc *usecase.OrderUsecase, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{uc: uc, log: log}
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group, authMW echo.MiddlewareFunc) {
	orders := g.Group("/orders", authMW)
	orders.GET("", h.list)
	orders.GET("/:id", h.detail)
}

func (h *OrderHandler) list(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.List(c.Request().Context(), p.UserID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	o, err := h.uc.GetByID(c.Request().Context(), p.UserID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}
