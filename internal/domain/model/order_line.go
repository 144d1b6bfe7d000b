package model

import "github.com/shopspring/decimal"

// 注文明細
// 注文時点の商品名・割引後単価・画像を必ず保存。ItemIDは参照のみ
type OrderLine struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID       string          `gorm:"type:uuid;not null;index" json:"-"`
	Position      int             `gorm:"not null" json:"-"`
	ItemID        string          `gorm:"type:uuid;not null" json:"item_id"`
	NameSnapshot  string          `gorm:"type:varchar(255);not null" json:"name_snapshot"`
	PriceSnapshot decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_snapshot"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	ImageSnapshot *string         `gorm:"type:text" json:"image_snapshot"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceSnapshot.Mul(decimal.NewFromInt(l.Quantity))
}
