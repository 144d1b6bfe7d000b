package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Test: 割引後単価は小数2桁
func TestItem_UnitPrice(t *testing.T) {
	cases := []struct {
		price, discount, want string
	}{
		{"100", "10", "90"},
		{"50", "0", "50"},
		{"19.99", "15", "16.99"},
		{"10", "100", "0"},
		{"0.05", "50", "0.03"},
	}
	for _, tc := range cases {
		it := Item{Price: dec(tc.price), Discount: dec(tc.discount)}
		assert.Equal(t, tc.want, it.UnitPrice().String(), "%s -%s%%", tc.price, tc.discount)
	}
}

// Test: 先頭画像。無ければnil
func TestItem_FirstImage(t *testing.T) {
	assert.Nil(t, Item{}.FirstImage())

	img := Item{Images: []string{"a", "b"}}.FirstImage()
	if assert.NotNil(t, img) {
		assert.Equal(t, "a", *img)
	}
}

// Test: 出品者IDがnilの商品は誰のものでもない
func TestItem_OwnedBy(t *testing.T) {
	s := "s1"
	assert.True(t, Item{SellerID: &s}.OwnedBy("s1"))
	assert.False(t, Item{SellerID: &s}.OwnedBy("s2"))
	assert.False(t, Item{}.OwnedBy("s1"))
}

// Test: 90×2 + 50×1 = 230
func TestOrder_LinesTotal(t *testing.T) {
	o := Order{Lines: []OrderLine{
		{PriceSnapshot: dec("90"), Quantity: 2},
		{PriceSnapshot: dec("50"), Quantity: 1},
	}}
	assert.Equal(t, "230", o.LinesTotal().String())
	assert.True(t, Order{}.LinesTotal().IsZero())
}

func TestParseRoleAndCategory(t *testing.T) {
	r, ok := ParseRole("seller")
	assert.True(t, ok)
	assert.Equal(t, RoleSeller, r)
	_, ok = ParseRole("root")
	assert.False(t, ok)

	c, ok := ParseCategory("streetwear")
	assert.True(t, ok)
	assert.Equal(t, CategoryStreetwear, c)
	_, ok = ParseCategory("furniture")
	assert.False(t, ok)

	p := Principal{UserID: "u", Role: RoleAdmin}
	assert.True(t, p.HasRole(RoleSeller, RoleAdmin))
	assert.False(t, p.HasRole(RoleCustomer))
}
