package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategorySneakers    Category = "sneakers"
	CategoryStreetwear  Category = "streetwear"
	CategoryElectronics Category = "electronics"
	CategoryAccessories Category = "accessories"
	CategoryOther       Category = "other"
)

func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategorySneakers, CategoryStreetwear, CategoryElectronics, CategoryAccessories, CategoryOther:
		return Category(s), true
	default:
		return "", false
	}
}

var hundred = decimal.NewFromInt(100)

// 商品。SellerIDがnilの商品は管理者のみ変更できる
type Item struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Brand       string          `gorm:"type:varchar(255);not null" json:"brand"`
	Category    Category        `gorm:"type:varchar(32);not null;default:'other';index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Discount    decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Images      []string        `gorm:"type:jsonb;serializer:json;not null" json:"images"`
	Tags        []string        `gorm:"type:jsonb;serializer:json;not null" json:"tags"`
	Stock       int64           `gorm:"not null;default:0" json:"stock"`
	SellerID    *string         `gorm:"type:uuid;index" json:"seller_id"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

// 割引後の単価（小数2桁で丸め）
func (i Item) UnitPrice() decimal.Decimal {
	return i.Price.Mul(hundred.Sub(i.Discount)).Div(hundred).Round(2)
}

// 先頭画像。無ければnil
func (i Item) FirstImage() *string {
	if len(i.Images) == 0 {
		return nil
	}
	img := i.Images[0]
	return &img
}

func (i Item) OwnedBy(userID string) bool {
	return i.SellerID != nil && *i.SellerID == userID
}
