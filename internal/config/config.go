package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	AppName     string
	Env         string // development/production
	Port        string // サーバーポート（8080）
	StoreDriver string // postgres/memory

	// DB。DatabaseURLがあれば最優先
	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnMaxLife    time.Duration
	MigrateOnStart   bool

	// 認証
	JWTSecret        string // 空なら開発用の一時鍵
	BcryptCost       int
	AllowAdminSignup bool

	// HTTP
	CORSAllowedOrigins string // カンマ区切り
	HTTPLogEnabled     bool

	// checkout
	DefaultCountry   string
	CheckoutLockTTL  time.Duration
	CheckoutLockWait time.Duration

	// Redis（空ならロックはプロセス内、レート制限は無効）
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Elasticsearch（空なら検索はDB）
	ElasticsearchAddrs string
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESItemsIndex       string

	// RabbitMQ（空ならイベントは送らない）
	RabbitMQURL        string
	RabbitMQOrderQueue string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		AppName:     getenv("APP_NAME", "flex-vault"),
		Env:         getenv("APP_ENV", "development"),
		Port:        strings.TrimPrefix(getenv("PORT", "8080"), ":"),
		StoreDriver: getenv("STORE_DRIVER", StoreDriverPostgres),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "flexvault"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		DBMaxOpenConns:   getint("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:   getint("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLife:    getdur("DB_CONN_MAX_LIFETIME", time.Hour),
		MigrateOnStart:   getbool("MIGRATE_ON_START", true),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		BcryptCost:       getint("BCRYPT_COST", bcrypt.DefaultCost),
		AllowAdminSignup: getbool("ALLOW_ADMIN_SIGNUP", false),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", "*"),
		HTTPLogEnabled:     getbool("HTTP_LOG_ENABLED", true),

		DefaultCountry:   getenv("DEFAULT_COUNTRY", "India"),
		CheckoutLockTTL:  getdur("CHECKOUT_LOCK_TTL", 15*time.Second),
		CheckoutLockWait: getdur("CHECKOUT_LOCK_WAIT", 3*time.Second),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getint("REDIS_DB", 0),
		LoginRateLimit:  getint("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getdur("LOGIN_RATE_WINDOW", time.Minute),

		ElasticsearchAddrs: os.Getenv("ELASTICSEARCH_ADDRS"),
		ElasticsearchUser:  os.Getenv("ELASTICSEARCH_USERNAME"),
		ElasticsearchPass:  os.Getenv("ELASTICSEARCH_PASSWORD"),
		ESItemsIndex:       getenv("ES_ITEMS_INDEX", "items"),

		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		RabbitMQOrderQueue: getenv("RABBITMQ_ORDER_QUEUE", "orders"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.CheckoutLockTTL <= 0 || c.CheckoutLockWait <= 0 {
		return fmt.Errorf("CHECKOUT_LOCK_TTL and CHECKOUT_LOCK_WAIT must be positive")
	}
	if strings.TrimSpace(c.DefaultCountry) == "" {
		return fmt.Errorf("DEFAULT_COUNTRY must not be blank")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr は ":8080" 形式
func (c Config) Addr() string {
	return ":" + c.Port
}

// PostgresDSN returns a DSN compatible with pgx
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "postgres://" + c.PostgresUser + ":" + c.PostgresPassword + "@" + c.PostgresHost + ":" + c.PostgresPort + "/" + c.PostgresDB + "?sslmode=" + c.PostgresSSLMode
}

// CORSOrigins returns the allowed origins as slice
func (c Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c Config) ESAddrs() []string {
	return splitList(c.ElasticsearchAddrs)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
