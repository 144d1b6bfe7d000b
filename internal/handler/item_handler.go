package handler

import (
	"net/http"
	"strings"

	"flexvault/internal/domain/model"
	"flexvault/internal/middleware"
	"flexvault/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// /items と /search のHTTP
type ItemHandler struct {
	uc  *usecase.ItemUsecase
	log logrus.FieldLogger
}

// DI
func NewItemHandler(uc *usecase.ItemUsecase, log logrus.FieldLogger) *ItemHandler {
	return &ItemHandler{uc: uc, log: log}
}

// 作成・更新の共通ボディ。省略した項目は更新しない
type itemRequest struct {
	Name        *string          `json:"name"`
	Brand       *string          `json:"brand"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Discount    *decimal.Decimal `json:"discount"`
	Description *string          `json:"description"`
	Images      []string         `json:"images" validate:"omitempty,dive,max=2048"`
	Tags        []string         `json:"tags" validate:"omitempty,dive,max=64"`
	Stock       *int64           `json:"stock" validate:"omitempty,gte=0"`
	SellerID    *string          `json:"seller_id" validate:"omitempty,uuid"`
}

func (r itemRequest) toInput() usecase.ItemInput {
	return usecase.ItemInput{
		Name:        r.Name,
		Brand:       r.Brand,
		Category:    r.Category,
		Price:       r.Price,
		Discount:    r.Discount,
		Description: r.Description,
		Images:      r.Images,
		Tags:        r.Tags,
		Stock:       r.Stock,
		SellerID:    r.SellerID,
	}
}

type searchResponse struct {
	Items []model.Item `json:"items"`
}

// 公開の一覧・詳細と、出品者/管理者の変更系を登録
func (h *ItemHandler) RegisterRoutes(g *echo.Group, authMW echo.MiddlewareFunc) {
	sellers := middleware.RequireRoles(model.RoleSeller, model.RoleAdmin)

	items := g.Group("/items")
	items.GET("", h.list)
	items.GET("/seller/my-items", h.listMine, authMW, middleware.RequireRoles(model.RoleSeller))
	items.GET("/:id", h.get)
	items.POST("", h.create, authMW, sellers)
	items.PUT("/:id", h.update, authMW, sellers)
	items.DELETE("/:id", h.delete, authMW, sellers)

	g.GET("/search", h.search, authMW)
}

// camelCaseを優先し、snake_caseも受ける
func catalogFilters(c echo.Context) usecase.CatalogFilters {
	return usecase.CatalogFilters{
		Category: c.QueryParam("category"),
		PriceMin: firstQuery(c, "priceMin", "price_min"),
		PriceMax: firstQuery(c, "priceMax", "price_max"),
		Search:   c.QueryParam("search"),
		SortBy:   firstQuery(c, "sortBy", "sort_by"),
		Order:    c.QueryParam("order"),
		Page:     c.QueryParam("page"),
		Limit:    c.QueryParam("limit"),
	}
}

func firstQuery(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := c.QueryParam(n); v != "" {
			return v
		}
	}
	return ""
}

func (h *ItemHandler) list(c echo.Context) error {
	page, err := h.uc.List(c.Request().Context(), catalogFilters(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *ItemHandler) listMine(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := h.uc.ListMine(c.Request().Context(), p, catalogFilters(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *ItemHandler) get(c echo.Context) error {
	it, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *ItemHandler) create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req itemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	it, err := h.uc.Create(c.Request().Context(), p, req.toInput())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *ItemHandler) update(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req itemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	it, err := h.uc.Update(c.Request().Context(), p, c.Param("id"), req.toInput())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *ItemHandler) delete(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /search?q=
func (h *ItemHandler) search(c echo.Context) error {
	term := strings.TrimSpace(firstQuery(c, "q", "search"))

	items, err := h.uc.Search(c.Request().Context(), term)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return c.JSON(http.StatusOK, searchResponse{Items: items})
}
