package repository

import (
	"context"
	"errors"
)

// 待ち時間内にロックが取れなかった
var ErrLockNotAcquired = errors.New("lock not acquired")

// keyごとの排他。releaseは1回だけ呼ぶ
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
