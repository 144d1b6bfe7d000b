package usecase

import (
	"context"
	"errors"
	"strings"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const SearchLimit = 20

// 商品の作成・更新入力。nilは「指定なし」（更新時は変更しない）
type ItemInput struct {
	Name        *string
	Brand       *string
	Category    *string
	Price       *decimal.Decimal
	Discount    *decimal.Decimal
	Description *string
	Images      []string
	Tags        []string
	Stock       *int64
	SellerID    *string // 管理者のみ有効
}

type ItemUsecase struct {
	itemRepo repo.ItemRepository
	index    ItemIndex
	idGen    IDGenerator
	clock    Clock
	log      logrus.FieldLogger
}

// DI。indexはnil可
func NewItemUsecase(itemRepo repo.ItemRepository, index ItemIndex, idGen IDGenerator, clock Clock, log logrus.FieldLogger) *ItemUsecase {
	return &ItemUsecase{
		itemRepo: itemRepo,
		index:    index,
		idGen:    idGen,
		clock:    clock,
		log:      log,
	}
}

// 出品者本人か管理者だけが変更できる
func AuthorizeItemMutation(p model.Principal, it model.Item) error {
	if p.Role == model.RoleAdmin {
		return nil
	}
	if p.Role == model.RoleSeller && it.OwnedBy(p.UserID) {
		return nil
	}
	return forbidden("you can only modify your own items")
}

// 公開の一覧
func (u *ItemUsecase) List(ctx context.Context, f CatalogFilters) (CatalogPage, error) {
	q, err := BuildCatalogQuery(f)
	if err != nil {
		return CatalogPage{}, err
	}
	return u.list(ctx, q)
}

// 自分の出品だけ
func (u *ItemUsecase) ListMine(ctx context.Context, p model.Principal, f CatalogFilters) (CatalogPage, error) {
	q, err := BuildCatalogQuery(f)
	if err != nil {
		return CatalogPage{}, err
	}
	sellerID := p.UserID
	q.List.SellerID = &sellerID
	return u.list(ctx, q)
}

func (u *ItemUsecase) list(ctx context.Context, q CatalogQuery) (CatalogPage, error) {
	items, total, err := u.itemRepo.List(ctx, q.List)
	if err != nil {
		return CatalogPage{}, internalError(u.log, err, "list items failed", nil)
	}
	return NewCatalogPage(items, total, q), nil
}

func (u *ItemUsecase) Get(ctx context.Context, id string) (model.Item, error) {
	it, err := u.itemRepo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Item{}, notFound("item not found")
	}
	if err != nil {
		return model.Item{}, internalError(u.log, err, "find item failed", logrus.Fields{"item_id": id})
	}
	return it, nil
}

func (u *ItemUsecase) Create(ctx context.Context, p model.Principal, in ItemInput) (model.Item, error) {
	if !p.HasRole(model.RoleSeller, model.RoleAdmin) {
		return model.Item{}, forbidden("insufficient permissions")
	}
	if in.Name == nil || in.Brand == nil || in.Description == nil || in.Price == nil {
		return model.Item{}, invalidArgument("name, brand, description and price are required")
	}

	now := u.clock.Now()
	it := model.Item{
		ID:        u.idGen.NewID(),
		Category:  model.CategoryOther,
		Discount:  decimal.Zero,
		Images:    []string{},
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyItemInput(&it, in); err != nil {
		return model.Item{}, err
	}

	// 出品者は自分、管理者は指定があればその出品者
	switch p.Role {
	case model.RoleSeller:
		sellerID := p.UserID
		it.SellerID = &sellerID
	case model.RoleAdmin:
		if in.SellerID != nil && strings.TrimSpace(*in.SellerID) != "" {
			sellerID := strings.TrimSpace(*in.SellerID)
			it.SellerID = &sellerID
		}
	}

	created, err := u.itemRepo.Create(ctx, it)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return model.Item{}, invalidArgument("unknown seller")
		}
		return model.Item{}, internalError(u.log, err, "create item failed", logrus.Fields{"user_id": p.UserID})
	}

	u.reindex(ctx, created)
	return created, nil
}

func (u *ItemUsecase) Update(ctx context.Context, p model.Principal, id string, in ItemInput) (model.Item, error) {
	it, err := u.Get(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	if err := AuthorizeItemMutation(p, it); err != nil {
		return model.Item{}, err
	}

	if err := applyItemInput(&it, in); err != nil {
		return model.Item{}, err
	}
	it.UpdatedAt = u.clock.Now()

	if err := u.itemRepo.Update(ctx, it); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Item{}, notFound("item not found")
		}
		return model.Item{}, internalError(u.log, err, "update item failed", logrus.Fields{"item_id": id})
	}

	u.reindex(ctx, it)
	return it, nil
}

func (u *ItemUsecase) Delete(ctx context.Context, p model.Principal, id string) error {
	it, err := u.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeItemMutation(p, it); err != nil {
		return err
	}

	if err := u.itemRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("item not found")
		}
		return internalError(u.log, err, "delete item failed", logrus.Fields{"item_id": id})
	}

	if u.index != nil {
		if err := u.index.DeleteItem(ctx, id); err != nil {
			u.log.WithError(err).WithField("item_id", id).Warn("es delete failed")
		}
	}
	return nil
}

// 検索。インデックスが使えない時はストアの部分一致に切り替える
func (u *ItemUsecase) Search(ctx context.Context, term string) ([]model.Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, invalidArgument("search query required")
	}

	if u.index != nil {
		ids, err := u.index.SearchIDs(ctx, term, SearchLimit)
		if err == nil {
			items, err := u.itemRepo.FindByIDs(ctx, ids)
			if err != nil {
				return nil, internalError(u.log, err, "load search hits failed", nil)
			}
			return items, nil
		}
		u.log.WithError(err).Warn("es search failed, falling back to store")
	}

	items, _, err := u.itemRepo.List(ctx, repo.ItemListQuery{
		Search: term,
		SortBy: repo.SortCreatedAt,
		Desc:   true,
		Limit:  SearchLimit,
	})
	if err != nil {
		return nil, internalError(u.log, err, "search items failed", nil)
	}
	return items, nil
}

func (u *ItemUsecase) reindex(ctx context.Context, it model.Item) {
	if u.index == nil {
		return
	}
	if err := u.index.IndexItem(ctx, it); err != nil {
		u.log.WithError(err).WithField("item_id", it.ID).Warn("es index failed")
	}
}

// 入力を検証して反映
func applyItemInput(it *model.Item, in ItemInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalidArgument("name is required")
		}
		it.Name = name
	}
	if in.Brand != nil {
		brand := strings.TrimSpace(*in.Brand)
		if brand == "" {
			return invalidArgument("brand is required")
		}
		it.Brand = brand
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return invalidArgument("description is required")
		}
		it.Description = desc
	}
	if in.Category != nil {
		cat, ok := model.ParseCategory(strings.ToLower(strings.TrimSpace(*in.Category)))
		if !ok {
			return invalidArgument("invalid category")
		}
		it.Category = cat
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return invalidArgument("price must be >= 0")
		}
		it.Price = in.Price.Round(2)
	}
	if in.Discount != nil {
		if in.Discount.IsNegative() || in.Discount.GreaterThan(hundred) {
			return invalidArgument("discount must be between 0 and 100")
		}
		it.Discount = in.Discount.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return invalidArgument("stock must be >= 0")
		}
		it.Stock = *in.Stock
	}
	if in.Images != nil {
		it.Images = compact(in.Images)
	}
	if in.Tags != nil {
		it.Tags = compact(in.Tags)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// 前後の空白を落として空要素を除く
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
