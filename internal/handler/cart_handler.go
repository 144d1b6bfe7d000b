package handler

import (
	"net/http"

	"flexvault/internal/domain/model"
	"flexvault/internal/middleware"
	"flexvault/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

// /cartのHTTP
type CartHandler struct {
	uc       *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	log      logrus.FieldLogger
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, checkout *usecase.CheckoutUsecase, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{uc: uc, checkout: checkout, log: log}
}

// itemIdでも受ける
type AddCartRequest struct {
	ItemID      string `json:"item_id" validate:"required_without=ItemIDCamel"`
	ItemIDCamel string `json:"itemId"`
	Quantity    int64  `json:"quantity"`
}

func (r AddCartRequest) itemID() string {
	if r.ItemID != "" {
		return r.ItemID
	}
	return r.ItemIDCamel
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// zipCodeでも受ける
type AddressRequest struct {
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	ZipCodeCamel string `json:"zipCode"`
	Country      string `json:"country"`
}

func (a AddressRequest) toModel() model.ShippingAddress {
	zip := a.ZipCode
	if zip == "" {
		zip = a.ZipCodeCamel
	}
	return model.ShippingAddress{Street: a.Street, City: a.City, State: a.State, ZipCode: zip, Country: a.Country}
}

// 住所は shipping_address / shippingAddress / address のどれでもよい
type CheckoutRequest struct {
	ShippingAddress      *AddressRequest `json:"shipping_address"`
	ShippingAddressCamel *AddressRequest `json:"shippingAddress"`
	Address              *AddressRequest `json:"address"`
}

func (r CheckoutRequest) address() model.ShippingAddress {
	for _, a := range []*AddressRequest{r.ShippingAddress, r.ShippingAddressCamel, r.Address} {
		if a != nil {
			return a.toModel()
		}
	}
	return model.ShippingAddress{}
}

// /cart, /cart/{id}, /cart/checkout を登録
func (h *CartHandler) RegisterRoutes(g *echo.Group, authMW echo.MiddlewareFunc) {
	cart := g.Group("/cart", authMW)

	cart.GET("", h.getCart)
	cart.POST("", h.addToCart)
	cart.POST("/checkout", h.checkoutCart)
	cart.PUT("/:id", h.updateItem)
	cart.DELETE("/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
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

func (h *CartHandler) addToCart(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.uc.Add(c.Request().Context(), p.UserID, req.itemID(), req.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateCartItemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), p.UserID, c.Param("id"), req.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.Remove(c.Request().Context(), p.UserID, c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// カートを注文にする。X-Idempotency-Keyがあれば同じ注文を返す
func (h *CartHandler) checkoutCart(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckoutRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	order, err := h.checkout.Checkout(c.Request().Context(), p.UserID, usecase.CheckoutInput{
		Address:        req.address(),
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, order)
}
