package repository

import (
	"context"
	"errors"
	"strings"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"gorm.io/gorm"
)

type ItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewItemGormRepository(db *gorm.DB) *ItemGormRepository {
	return &ItemGormRepository{db: db}
}

// 並び替え列のホワイトリスト。ここに無い列では並べない
var itemSortColumns = map[string]string{
	repo.SortCreatedAt: "created_at",
	repo.SortPrice:     "price",
	repo.SortName:      "name",
	repo.SortBrand:     "brand",
	repo.SortCategory:  "category",
	repo.SortDiscount:  "discount",
	repo.SortStock:     "stock",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// 検索/カテゴリ/価格帯/ソート/ページング付きで返す。totalは絞り込み後の件数
func (r *ItemGormRepository) List(ctx context.Context, q repo.ItemListQuery) ([]model.Item, int64, error) {
	var items []model.Item
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Item{})

	if q.Category != nil {
		tx = tx.Where("category = ?", *q.Category)
	}
	if q.SellerID != nil {
		tx = tx.Where("seller_id = ?", *q.SellerID)
	}

	//価格帯
	if q.PriceMin != nil {
		tx = tx.Where("price >= ?", *q.PriceMin)
	}
	if q.PriceMax != nil {
		tx = tx.Where("price <= ?", *q.PriceMax)
	}

	// 名前・ブランド・タグのどれかに部分一致（大文字小文字無視）
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + likeEscaper.Replace(s) + "%"
		tx = tx.Where(
			"name ILIKE ? OR brand ILIKE ? OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(items.tags) AS tag WHERE tag ILIKE ?)",
			like, like, like,
		)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Item{}, 0, err
	}

	//sort。同値はidで固定してページ跨ぎの重複を防ぐ
	col, ok := itemSortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := " asc"
	if q.Desc {
		dir = " desc"
	}
	tx = tx.Order(col + dir).Order("id" + dir)

	if err := tx.Offset(q.Offset).Limit(q.Limit).Find(&items).Error; err != nil {
		return []model.Item{}, 0, err
	}

	return items, total, nil
}

// IDで商品を取得
func (r *ItemGormRepository) FindByID(ctx context.Context, id string) (model.Item, error) {
	if !isUUID(id) {
		return model.Item{}, repo.ErrNotFound
	}
	var it model.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Item{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// 検索インデックスのヒット順に並べ直して返す
func (r *ItemGormRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	if len(ids) == 0 {
		return []model.Item{}, nil
	}

	var found []model.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return []model.Item{}, err
	}

	byID := make(map[string]model.Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}
	out := make([]model.Item, 0, len(found))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// 商品の作成
func (r *ItemGormRepository) Create(ctx context.Context, it model.Item) (model.Item, error) {
	if err := r.db.WithContext(ctx).Create(&it).Error; err != nil {
		return model.Item{}, translateError(err)
	}
	return it, nil
}

// 商品の更新（ID・出品者・作成日時以外）
func (r *ItemGormRepository) Update(ctx context.Context, it model.Item) error {
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", it.ID).
		Select("name", "brand", "category", "price", "discount", "description", "images", "tags", "stock", "updated_at").
		Updates(&it)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除。カート明細はFKのON DELETE CASCADEで消える
func (r *ItemGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
