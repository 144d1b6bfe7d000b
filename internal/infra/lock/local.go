// Package lock はcheckoutをユーザー単位で直列化するロック。
// Redisがあれば複数プロセス間、無ければプロセス内だけで効く。
package lock

import (
	"context"
	"sync"
	"time"

	repo "flexvault/internal/repository"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker はプロセス内のkey付きmutex。使われなくなったkeyは消す
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{locks: map[string]*localEntry{}, wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.unref(key, e)
			})
		}, nil
	case <-timer.C:
		l.unref(key, e)
		return nil, repo.ErrLockNotAcquired
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
