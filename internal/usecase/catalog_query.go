package usecase

import (
	"strconv"
	"strings"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// クエリ文字列そのまま。空は未指定
type CatalogFilters struct {
	Category string
	PriceMin string
	PriceMax string
	Search   string
	SortBy   string
	Order    string
	Page     string
	Limit    string
}

// 正規化済みの一覧条件
type CatalogQuery struct {
	List  repo.ItemListQuery
	Page  int
	Limit int
}

// 一覧の応答
type CatalogPage struct {
	Items      []model.Item `json:"items"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int64        `json:"total_pages"`
}

// camelCaseとsnake_caseの両方を受ける
var sortKeys = map[string]string{
	"createdAt":  repo.SortCreatedAt,
	"created_at": repo.SortCreatedAt,
	"price":      repo.SortPrice,
	"name":       repo.SortName,
	"brand":      repo.SortBrand,
	"category":   repo.SortCategory,
	"discount":   repo.SortDiscount,
	"stock":      repo.SortStock,
}

// BuildCatalogQuery はフィルタを検証してストア用の条件にする。副作用なし
func BuildCatalogQuery(f CatalogFilters) (CatalogQuery, error) {
	var q repo.ItemListQuery

	if c := strings.TrimSpace(f.Category); c != "" {
		cat, ok := model.ParseCategory(strings.ToLower(c))
		if !ok {
			return CatalogQuery{}, invalidArgument("invalid category")
		}
		q.Category = &cat
	}

	lo, err := parsePrice(f.PriceMin, "priceMin")
	if err != nil {
		return CatalogQuery{}, err
	}
	hi, err := parsePrice(f.PriceMax, "priceMax")
	if err != nil {
		return CatalogQuery{}, err
	}
	q.PriceMin, q.PriceMax = lo, hi

	q.Search = strings.TrimSpace(f.Search)

	q.SortBy = repo.SortCreatedAt
	if s, ok := sortKeys[strings.TrimSpace(f.SortBy)]; ok {
		q.SortBy = s
	}
	// asc以外は全てdesc
	q.Desc = !strings.EqualFold(strings.TrimSpace(f.Order), "asc")

	page := positiveOr(f.Page, DefaultPage)
	limit := positiveOr(f.Limit, DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q.Offset = (page - 1) * limit
	q.Limit = limit

	return CatalogQuery{List: q, Page: page, Limit: limit}, nil
}

// ceil(total/limit)
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

func NewCatalogPage(items []model.Item, total int64, q CatalogQuery) CatalogPage {
	if items == nil {
		items = []model.Item{}
	}
	return CatalogPage{
		Items:      items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: TotalPages(total, q.Limit),
	}
}

func parsePrice(s, name string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, invalidArgument("invalid " + name)
	}
	return &d, nil
}

// 0以下・数値でない値はデフォルト
func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}
