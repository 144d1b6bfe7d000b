package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// 配送先
type ShippingAddress struct {
	Street  string `gorm:"type:varchar(255);not null" json:"street"`
	City    string `gorm:"type:varchar(255);not null" json:"city"`
	State   string `gorm:"type:varchar(255);not null" json:"state"`
	ZipCode string `gorm:"type:varchar(20);not null" json:"zip_code"`
	Country string `gorm:"type:varchar(100);not null" json:"country"`
}

// 注文。作成後は変更しない
type Order struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Lines           []OrderLine     `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	IdempotencyKey  *string         `gorm:"type:varchar(255)" json:"-"`
	CreatedAt       time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"-"`
}

// 明細から合計を計算
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
