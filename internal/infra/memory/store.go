// Package memory はプロセス内に全データを持つストア。
// ローカル開発とテスト用で、postgres実装と同じrepositoryの約束を守る。
package memory

import (
	"context"
	"sync"
	"time"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"
)

type cartRow struct {
	entry model.CartEntry
	seq   int64
}

type orderRow struct {
	order model.Order
	seq   int64
}

type state struct {
	users  map[string]model.User
	items  map[string]model.Item
	carts  map[string]cartRow
	orders map[string]orderRow
	seq    int64
}

func (s *state) clone() state {
	cp := state{
		users:  make(map[string]model.User, len(s.users)),
		items:  make(map[string]model.Item, len(s.items)),
		carts:  make(map[string]cartRow, len(s.carts)),
		orders: make(map[string]orderRow, len(s.orders)),
		seq:    s.seq,
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.items {
		cp.items[k] = v
	}
	for k, v := range s.carts {
		cp.carts[k] = v
	}
	for k, v := range s.orders {
		cp.orders[k] = v
	}
	return cp
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// Store は全repositoryが共有するデータ本体
type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: state{
			users:  map[string]model.User{},
			items:  map[string]model.Item{},
			carts:  map[string]cartRow{},
			orders: map[string]orderRow{},
		},
		now: time.Now,
	}
}

// tx中は既にロック済みなので取らない
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Users() repo.UserRepository { return &UserRepository{s: s} }
func (s *Store) Items() *ItemRepository     { return &ItemRepository{s: s} }
func (s *Store) Carts() *CartRepository     { return &CartRepository{s: s} }
func (s *Store) Orders() *OrderRepository   { return &OrderRepository{s: s} }

type txRepos struct {
	orders *OrderRepository
	carts  *CartRepository
	items  *ItemRepository
}

func (r *txRepos) Orders() repo.OrderRepository { return r.orders }
func (r *txRepos) Carts() repo.CartRepository   { return r.carts }
func (r *txRepos) Items() repo.ItemRepository   { return r.items }

// TxManager はStore全体を直列化し、fnが失敗したら開始前の状態へ戻す
type TxManager struct {
	s *Store
}

func NewTxManager(s *Store) *TxManager {
	return &TxManager{s: s}
}

func (tm *TxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	tm.s.mu.Lock()
	defer tm.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := tm.s.st.clone()
	r := &txRepos{
		orders: &OrderRepository{s: tm.s, inTx: true},
		carts:  &CartRepository{s: tm.s, inTx: true},
		items:  &ItemRepository{s: tm.s, inTx: true},
	}
	if err := fn(r); err != nil {
		//rollback
		tm.s.st = snapshot
		return err
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneItem(it model.Item) model.Item {
	it.Images = cloneStrings(it.Images)
	it.Tags = cloneStrings(it.Tags)
	if it.SellerID != nil {
		id := *it.SellerID
		it.SellerID = &id
	}
	return it
}

func cloneOrder(o model.Order) model.Order {
	lines := make([]model.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		o.IdempotencyKey = &k
	}
	return o
}
