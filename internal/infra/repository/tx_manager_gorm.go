package repository

import (
	"context"

	repo "flexvault/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders repo.OrderRepository
	carts  repo.CartRepository
	items  repo.ItemRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository { return r.orders }
func (r *txReposGorm) Carts() repo.CartRepository   { return r.carts }
func (r *txReposGorm) Items() repo.ItemRepository   { return r.items }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders: NewOrderGormRepository(tx),
			carts:  NewCartGormRepository(tx),
			items:  NewItemGormRepository(tx),
		}
		return fn(r)
	})
}
