package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// 固定ウィンドウのカウンタ
type RateCounter interface {
	// keyを1増やし、現在値とウィンドウの残りを返す
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// INCR + 初回だけPEXPIRE を原子的に行う
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

var errUnexpectedReply = errors.New("unexpected rate limit reply")

type RedisRateCounter struct {
	rdb *redis.Client
}

func NewRedisRateCounter(rdb *redis.Client) *RedisRateCounter {
	return &RedisRateCounter{rdb: rdb}
}

func (r *RedisRateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrExpireScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, errUnexpectedReply
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

// route + クライアントIPごと
type KeyFunc func(c echo.Context) string

func KeyByIPAndPath(prefix string) KeyFunc {
	return func(c echo.Context) string {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		return prefix + ":path:" + path + ":ip:" + ip
	}
}

// counterがnilなら何もしない。カウンタの失敗時は通す
func RateLimit(counter RateCounter, limit int, window time.Duration, keyFn KeyFunc, log logrus.FieldLogger) echo.MiddlewareFunc {
	if counter == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.EqualFold(c.Request().Method, http.MethodOptions) {
				return next(c)
			}

			key := keyFn(c)
			count, ttl, err := counter.Incr(c.Request().Context(), key, window)
			if err != nil {
				if log != nil {
					log.WithError(err).WithField("key", key).Warn("rate limit counter unavailable")
				}
				return next(c)
			}

			resetSec := int(ttl.Seconds())
			if resetSec < 0 {
				resetSec = 0
			}
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

			if int(count) > limit {
				if resetSec > 0 {
					h.Set("Retry-After", strconv.Itoa(resetSec))
				}
				return c.JSON(http.StatusTooManyRequests, errorJSON("too many requests"))
			}
			return next(c)
		}
	}
}
