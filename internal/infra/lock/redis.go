package lock

import (
	"context"
	"errors"
	"time"

	repo "flexvault/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const retryInterval = 50 * time.Millisecond

// 自分のtokenの時だけ消す（TTL切れ後に他人のロックを消さない）
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker は SET NX PX による分散ロック
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    *logrus.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration, log *logrus.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: "lock:", ttl: ttl, wait: wait, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(k, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, repo.ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// リクエストがキャンセルされていても解放はする
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := unlockScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.log.WithError(err).WithField("key", key).Warn("failed to release lock")
	}
}
