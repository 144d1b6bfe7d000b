package memory

import (
	"context"
	"sort"
	"strings"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"
)

type ItemRepository struct {
	s    *Store
	inTx bool
}

func (r *ItemRepository) List(ctx context.Context, q repo.ItemListQuery) ([]model.Item, int64, error) {
	defer r.s.lock(r.inTx)()

	term := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]model.Item, 0)
	for _, it := range r.s.st.items {
		if matchItem(it, q, term) {
			matched = append(matched, it)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		c := compareItems(matched[i], matched[j], q.SortBy)
		if c == 0 {
			c = strings.Compare(matched[i].ID, matched[j].ID)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]model.Item, 0, end-start)
	for _, it := range matched[start:end] {
		out = append(out, cloneItem(it))
	}
	return out, total, nil
}

func matchItem(it model.Item, q repo.ItemListQuery, term string) bool {
	if q.Category != nil && it.Category != *q.Category {
		return false
	}
	if q.SellerID != nil && (it.SellerID == nil || *it.SellerID != *q.SellerID) {
		return false
	}
	if q.PriceMin != nil && it.Price.LessThan(*q.PriceMin) {
		return false
	}
	if q.PriceMax != nil && it.Price.GreaterThan(*q.PriceMax) {
		return false
	}
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(it.Name), term) || strings.Contains(strings.ToLower(it.Brand), term) {
		return true
	}
	for _, tag := range it.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func compareItems(a, b model.Item, sortBy string) int {
	switch sortBy {
	case repo.SortPrice:
		return a.Price.Cmp(b.Price)
	case repo.SortName:
		return strings.Compare(a.Name, b.Name)
	case repo.SortBrand:
		return strings.Compare(a.Brand, b.Brand)
	case repo.SortCategory:
		return strings.Compare(string(a.Category), string(b.Category))
	case repo.SortDiscount:
		return a.Discount.Cmp(b.Discount)
	case repo.SortStock:
		switch {
		case a.Stock < b.Stock:
			return -1
		case a.Stock > b.Stock:
			return 1
		}
		return 0
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (model.Item, error) {
	defer r.s.lock(r.inTx)()

	it, ok := r.s.st.items[id]
	if !ok {
		return model.Item{}, repo.ErrNotFound
	}
	return cloneItem(it), nil
}

func (r *ItemRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	defer r.s.lock(r.inTx)()

	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := r.s.st.items[id]; ok {
			out = append(out, cloneItem(it))
		}
	}
	return out, nil
}

func (r *ItemRepository) Create(ctx context.Context, it model.Item) (model.Item, error) {
	defer r.s.lock(r.inTx)()

	if _, ok := r.s.st.items[it.ID]; ok {
		return model.Item{}, repo.ErrDuplicate
	}
	now := r.s.now()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = now
	}
	it = cloneItem(it)
	r.s.st.items[it.ID] = it
	return cloneItem(it), nil
}

// ID・出品者・作成日時は変えない
func (r *ItemRepository) Update(ctx context.Context, it model.Item) error {
	defer r.s.lock(r.inTx)()

	cur, ok := r.s.st.items[it.ID]
	if !ok {
		return repo.ErrNotFound
	}
	it = cloneItem(it)
	it.SellerID = cur.SellerID
	it.CreatedAt = cur.CreatedAt
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = r.s.now()
	}
	r.s.st.items[it.ID] = it
	return nil
}

// カート明細も一緒に消す（postgresのON DELETE CASCADEと同じ）
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(r.inTx)()

	if _, ok := r.s.st.items[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.st.items, id)
	for k, row := range r.s.st.carts {
		if row.entry.ItemID == id {
			delete(r.s.st.carts, k)
		}
	}
	return nil
}
