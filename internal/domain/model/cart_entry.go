package model

import "time"

// カートの明細
// (user_id, item_id)で一意。同じ商品は数量を加算する
type CartEntry struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:ux_cart_entries_user_item,priority:1" json:"user_id"`
	ItemID    string    `gorm:"type:uuid;not null;uniqueIndex:ux_cart_entries_user_item,priority:2" json:"item_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	Item      *Item     `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
