package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"flexvault/internal/domain/model"
	"flexvault/internal/infra/lock"
	"flexvault/internal/infra/memory"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Helper
// =====================

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	store    *memory.Store
	items    *ItemUsecase
	cart     *CartUsecase
	checkout *CheckoutUsecase
	orders   *OrderUsecase
}

func newFixture(t *testing.T, index ItemIndex, pub OrderEventPublisher) *fixture {
	t.Helper()
	store := memory.NewStore()
	ids := &seqIDGen{}
	clock := fixedClock{testNow}
	log := quietLogger()

	return &fixture{
		store:    store,
		items:    NewItemUsecase(store.Items(), index, ids, clock, log),
		cart:     NewCartUsecase(store.Carts(), ids, clock, log),
		checkout: NewCheckoutUsecase(memory.NewTxManager(store), store.Orders(), lock.NewLocalLocker(time.Second), pub, ids, clock, log, "India"),
		orders:   NewOrderUsecase(store.Orders(), log),
	}
}

func seller(id string) model.Principal {
	return model.Principal{UserID: id, Email: id + "@test.com", Role: model.RoleSeller}
}

func customer(id string) model.Principal {
	return model.Principal{UserID: id, Email: id + "@test.com", Role: model.RoleCustomer}
}

func admin() model.Principal {
	return model.Principal{UserID: "admin", Email: "admin@test.com", Role: model.RoleAdmin}
}

func strp(s string) *string { return &s }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// 出品者として商品を作る
func (f *fixture) mustCreateItem(t *testing.T, owner model.Principal, name, price, discount string, images ...string) model.Item {
	t.Helper()
	it, err := f.items.Create(context.Background(), owner, ItemInput{
		Name:        strp(name),
		Brand:       strp("Brand"),
		Description: strp(name + " description"),
		Category:    strp("sneakers"),
		Price:       decp(price),
		Discount:    decp(discount),
		Images:      images,
	})
	require.NoError(t, err)
	return it
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	ae, ok := AsAppError(err)
	require.True(t, ok, "not an AppError: %v", err)
	require.Equal(t, kind, ae.Kind, ae.Message)
}

// =====================
// Mock: ItemIndex / OrderEventPublisher
// =====================

type MockItemIndex struct{ mock.Mock }

func (m *MockItemIndex) IndexItem(ctx context.Context, it model.Item) error {
	args := m.Called(ctx, it)
	return args.Error(0)
}

func (m *MockItemIndex) DeleteItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemIndex) SearchIDs(ctx context.Context, term string, size int) ([]string, error) {
	args := m.Called(ctx, term, size)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishOrderPlaced(ctx context.Context, o model.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
