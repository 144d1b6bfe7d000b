package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	Carts() CartRepository
	Items() ItemRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがエラーを返したら全てロールバック
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
