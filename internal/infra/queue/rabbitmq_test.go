package queue

import (
	"encoding/json"
	"testing"
	"time"

	"flexvault/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test: イベントは注文の要約だけを持つ
func TestNewOrderPlacedEvent(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := model.Order{
		ID:          "o1",
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString("230.00"),
		Lines:       []model.OrderLine{{ItemID: "a"}, {ItemID: "b"}},
		CreatedAt:   created,
	}

	ev := NewOrderPlacedEvent(o)

	assert.Equal(t, EventOrderPlaced, ev.Type)
	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, 2, ev.LineCount)
	assert.True(t, ev.TotalAmount.Equal(decimal.NewFromInt(230)))

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"order.placed"`)
	assert.Contains(t, string(b), `"order_id":"o1"`)
}
