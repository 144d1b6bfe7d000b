package memory

import (
	"context"
	"sort"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"
)

type OrderRepository struct {
	s    *Store
	inTx bool
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	defer r.s.lock(r.inTx)()

	if _, ok := r.s.st.orders[order.ID]; ok {
		return repo.ErrDuplicate
	}
	// (user_id, idempotency_key)は一意
	if order.IdempotencyKey != nil {
		for _, row := range r.s.st.orders {
			o := row.order
			if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return repo.ErrDuplicate
			}
		}
	}

	now := r.s.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		order.Lines[i].Position = i
		order.Lines[i].ID = r.s.st.next()
	}

	r.s.st.orders[order.ID] = orderRow{order: cloneOrder(*order), seq: r.s.st.next()}
	return nil
}

func (r *OrderRepository) FindByUserAndID(ctx context.Context, userID string, orderID string) (model.Order, error) {
	defer r.s.lock(r.inTx)()

	row, ok := r.s.st.orders[orderID]
	if !ok || row.order.UserID != userID {
		return model.Order{}, repo.ErrNotFound
	}
	return cloneOrder(row.order), nil
}

// 新しい順
func (r *OrderRepository) ListByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	defer r.s.lock(r.inTx)()

	rows := make([]orderRow, 0)
	for _, row := range r.s.st.orders {
		if row.order.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneOrder(row.order))
	}
	return out, nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	defer r.s.lock(r.inTx)()

	for _, row := range r.s.st.orders {
		o := row.order
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return cloneOrder(o), true, nil
		}
	}
	return model.Order{}, false, nil
}
