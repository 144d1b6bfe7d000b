package usecase

import (
	"context"
	"errors"
	"strings"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxIdempotencyKeyLen = 255

type CheckoutInput struct {
	Address        model.ShippingAddress
	IdempotencyKey string
}

// CheckoutUsecase はカートを注文に変える。
// 注文作成とカート削除は同じトランザクションで、どちらかが失敗すれば両方戻る。
type CheckoutUsecase struct {
	tx             repo.TransactionManager
	orders         repo.OrderRepository
	locker         repo.Locker
	publisher      OrderEventPublisher
	idGen          IDGenerator
	clock          Clock
	log            logrus.FieldLogger
	defaultCountry string
}

// DI。publisherはnil可
func NewCheckoutUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	locker repo.Locker,
	publisher OrderEventPublisher,
	idGen IDGenerator,
	clock Clock,
	log logrus.FieldLogger,
	defaultCountry string,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:             tx,
		orders:         orders,
		locker:         locker,
		publisher:      publisher,
		idGen:          idGen,
		clock:          clock,
		log:            log,
		defaultCountry: defaultCountry,
	}
}

var errDuplicateKey = errors.New("idempotency key already used")

func (u *CheckoutUsecase) Checkout(ctx context.Context, userID string, in CheckoutInput) (model.Order, error) {
	addr, err := u.normalizeAddress(in.Address)
	if err != nil {
		return model.Order{}, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return model.Order{}, invalidArgument("idempotency key too long")
	}

	// 同じユーザーのcheckoutは1つずつ
	release, err := u.locker.Acquire(ctx, "checkout:"+userID)
	if errors.Is(err, repo.ErrLockNotAcquired) {
		return model.Order{}, NewAppError(KindConflict, "checkout already in progress")
	}
	if err != nil {
		return model.Order{}, internalError(u.log, err, "acquire checkout lock failed", logrus.Fields{"user_id": userID})
	}
	defer release()

	var out model.Order
	created := false

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return err
			}
			if found {
				out = existing
				return nil
			}
		}

		entries, err := r.Carts().ListByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return NewAppError(KindInvalidState, "cart is empty")
		}

		//スナップショット
		lines := make([]model.OrderLine, 0, len(entries))
		entryIDs := make([]string, 0, len(entries))
		total := decimal.Zero
		for _, e := range entries {
			if e.Item == nil {
				return NewAppError(KindInvalidState, "cart contains an unavailable item")
			}
			line := model.OrderLine{
				ItemID:        e.ItemID,
				NameSnapshot:  e.Item.Name,
				PriceSnapshot: e.Item.UnitPrice(),
				Quantity:      e.Quantity,
				ImageSnapshot: e.Item.FirstImage(),
			}
			lines = append(lines, line)
			entryIDs = append(entryIDs, e.ID)
			total = total.Add(line.Subtotal())
		}

		now := u.clock.Now()
		order := model.Order{
			ID:              u.idGen.NewID(),
			UserID:          userID,
			Lines:           lines,
			TotalAmount:     total,
			Status:          model.OrderStatusPending,
			ShippingAddress: addr,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			k := key
			order.IdempotencyKey = &k
		}

		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return errDuplicateKey
			}
			return err
		}

		// 注文に入れた明細だけ消す
		n, err := r.Carts().DeleteByIDs(ctx, userID, entryIDs)
		if err != nil {
			return err
		}
		if n != int64(len(entryIDs)) {
			return NewAppError(KindConflict, "cart changed during checkout")
		}

		out = order
		created = true
		return nil
	})

	if errors.Is(err, errDuplicateKey) {
		// 別プロセスが先に同じキーで作った。ロールバック後に取り直す
		existing, found, ferr := u.orders.FindByIdempotencyKey(ctx, userID, key)
		if ferr == nil && found {
			return existing, nil
		}
		return model.Order{}, NewAppError(KindConflict, "idempotency key conflict")
	}
	if err != nil {
		if _, ok := AsAppError(err); ok {
			return model.Order{}, err
		}
		return model.Order{}, internalError(u.log, err, "checkout failed", logrus.Fields{"user_id": userID})
	}

	if created {
		u.publish(ctx, out)
	}
	return out, nil
}

func (u *CheckoutUsecase) publish(ctx context.Context, o model.Order) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.PublishOrderPlaced(ctx, o); err != nil {
		u.log.WithError(err).WithField("order_id", o.ID).Warn("publish order.placed failed")
		return
	}
	u.log.WithField("order_id", o.ID).Info("order placed")
}

// street, city, state, zipCodeは必須。countryは省略時デフォルト
func (u *CheckoutUsecase) normalizeAddress(a model.ShippingAddress) (model.ShippingAddress, error) {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)

	if a.Street == "" || a.City == "" || a.State == "" || a.ZipCode == "" {
		return model.ShippingAddress{}, invalidArgument("address required with street, city, state, zipCode")
	}
	if a.Country == "" {
		a.Country = u.defaultCountry
	}
	return a, nil
}
