package memory

import (
	"context"
	"errors"
	"sort"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"
)

type CartRepository struct {
	s    *Store
	inTx bool
}

func (r *CartRepository) AddOrIncrement(ctx context.Context, entry model.CartEntry) (model.CartEntry, error) {
	if entry.Quantity <= 0 {
		return model.CartEntry{}, errors.New("invalid quantity")
	}
	defer r.s.lock(r.inTx)()

	if _, ok := r.s.st.items[entry.ItemID]; !ok {
		return model.CartEntry{}, repo.ErrNotFound
	}

	now := r.s.now()
	// 同一商品は数量加算
	for k, row := range r.s.st.carts {
		if row.entry.UserID == entry.UserID && row.entry.ItemID == entry.ItemID {
			row.entry.Quantity += entry.Quantity
			row.entry.UpdatedAt = now
			r.s.st.carts[k] = row
			return r.withItem(row.entry), nil
		}
	}

	entry.Item = nil
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	r.s.st.carts[entry.ID] = cartRow{entry: entry, seq: r.s.st.next()}
	return r.withItem(entry), nil
}

func (r *CartRepository) withItem(e model.CartEntry) model.CartEntry {
	if it, ok := r.s.st.items[e.ItemID]; ok {
		cp := cloneItem(it)
		e.Item = &cp
	}
	return e
}

func (r *CartRepository) list(userID string) []model.CartEntry {
	rows := make([]cartRow, 0)
	for _, row := range r.s.st.carts {
		if row.entry.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]model.CartEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.withItem(row.entry))
	}
	return out
}

func (r *CartRepository) ListByUserID(ctx context.Context, userID string) ([]model.CartEntry, error) {
	defer r.s.lock(r.inTx)()
	return r.list(userID), nil
}

// tx中はStore全体がロック済み
func (r *CartRepository) ListByUserIDForUpdate(ctx context.Context, userID string) ([]model.CartEntry, error) {
	defer r.s.lock(r.inTx)()
	return r.list(userID), nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID string, entryID string, qty int64) (model.CartEntry, error) {
	defer r.s.lock(r.inTx)()

	row, ok := r.s.st.carts[entryID]
	if !ok || row.entry.UserID != userID {
		return model.CartEntry{}, repo.ErrNotFound
	}
	row.entry.Quantity = qty
	row.entry.UpdatedAt = r.s.now()
	r.s.st.carts[entryID] = row
	return r.withItem(row.entry), nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string, entryID string) error {
	defer r.s.lock(r.inTx)()

	row, ok := r.s.st.carts[entryID]
	if !ok || row.entry.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.s.st.carts, entryID)
	return nil
}

func (r *CartRepository) DeleteByIDs(ctx context.Context, userID string, entryIDs []string) (int64, error) {
	defer r.s.lock(r.inTx)()

	var n int64
	for _, id := range entryIDs {
		row, ok := r.s.st.carts[id]
		if !ok || row.entry.UserID != userID {
			continue
		}
		delete(r.s.st.carts, id)
		n++
	}
	return n, nil
}
