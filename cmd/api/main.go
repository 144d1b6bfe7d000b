package main

import (
	"log"
	"time"

	"flexvault/internal/config"
	"flexvault/internal/handler"
	"flexvault/internal/infra/db"
	"flexvault/internal/infra/lock"
	infralog "flexvault/internal/infra/logger"
	"flexvault/internal/infra/memory"
	"flexvault/internal/infra/queue"
	infraRepo "flexvault/internal/infra/repository"
	"flexvault/internal/infra/search"
	"flexvault/internal/middleware"
	repo "flexvault/internal/repository"
	"flexvault/internal/server"
	"flexvault/internal/usecase"
	auth "flexvault/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// ストアごとのrepository一式
type stores struct {
	users  repo.UserRepository
	items  repo.ItemRepository
	carts  repo.CartRepository
	orders repo.OrderRepository
	tx     repo.TransactionManager
}

func openStores(cfg config.Config, logger *logrus.Logger) (stores, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("STORE_DRIVER=memory: data is lost on restart")
		s := memory.NewStore()
		return stores{
			users:  s.Users(),
			items:  s.Items(),
			carts:  s.Carts(),
			orders: s.Orders(),
			tx:     memory.NewTxManager(s),
		}, func() {}, nil
	}

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
			return stores{}, nil, err
		}
	}

	gormDB, err := db.Connect(cfg, logger)
	if err != nil {
		return stores{}, nil, err
	}
	closeDB := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	return stores{
		users:  infraRepo.NewUserGormRepository(gormDB),
		items:  infraRepo.NewItemGormRepository(gormDB),
		carts:  infraRepo.NewCartGormRepository(gormDB),
		orders: infraRepo.NewOrderGormRepository(gormDB),
		tx:     infraRepo.NewTxManagerGorm(gormDB),
	}, closeDB, nil
}

func main() {
	_ = godotenv.Load() // .envがあれば読む

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := infralog.NewLogger(cfg.AppName, cfg.Env)

	//DB接続
	st, closeStores, err := openStores(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer closeStores()

	//JWT鍵。未設定なら起動ごとの一時鍵（再起動で全トークン無効）
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret, err = auth.NewEphemeralSecret()
		if err != nil {
			logger.WithError(err).Fatal("failed to generate jwt secret")
		}
		logger.Warn("JWT_SECRET is not set: using an ephemeral key, tokens will not survive a restart")
	}
	issuer := auth.NewJWTIssuer(secret, auth.AccessTokenTTL)

	//Redis（checkoutロックとrate limit）。無ければプロセス内ロック
	var locker repo.Locker = lock.NewLocalLocker(cfg.CheckoutLockWait)
	var counter middleware.RateCounter
	if cfg.RedisAddr != "" {
		rdb, err := db.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisLocker(rdb, cfg.CheckoutLockTTL, cfg.CheckoutLockWait, logger)
		counter = middleware.NewRedisRateCounter(rdb)
	} else {
		logger.Info("REDIS_ADDR is not set: checkout lock is process-local and login rate limit is disabled")
	}

	//Elasticsearch（任意）
	var index usecase.ItemIndex
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := search.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch client")
		}
		index = search.NewItemIndex(es, cfg.ESItemsIndex, logger)
	}

	//RabbitMQ（任意）
	var publisher usecase.OrderEventPublisher
	if cfg.RabbitMQURL != "" {
		pub, err := queue.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQOrderQueue)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer pub.Close()
		publisher = pub
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()

	//Usecase生成
	signupUC := auth.NewSignupUsecase(st.users, hasher, issuer, idGen, clock, cfg.AllowAdminSignup)
	loginUC := auth.NewLoginUsecase(st.users, hasher, verifier, issuer, clock)
	meUC := auth.NewMeUsecase(st.users)
	itemUC := usecase.NewItemUsecase(st.items, index, idGen, clock, logger)
	cartUC := usecase.NewCartUsecase(st.carts, idGen, clock, logger)
	checkoutUC := usecase.NewCheckoutUsecase(st.tx, st.orders, locker, publisher, idGen, clock, logger, cfg.DefaultCountry)
	orderUC := usecase.NewOrderUsecase(st.orders, logger)

	//Handler生成
	h := server.Handlers{
		Auth:   handler.NewAuthHandler(signupUC, loginUC, meUC, logger),
		Items:  handler.NewItemHandler(itemUC, logger),
		Cart:   handler.NewCartHandler(cartUC, checkoutUC, logger),
		Orders: handler.NewOrderHandler(orderUC, logger),
	}

	//Server起動
	e := server.New(cfg, logger, h, issuer, counter)
	if err := server.Run(e, cfg.Addr(), logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
