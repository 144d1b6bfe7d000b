package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	repo "flexvault/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test: 同じkeyは待ち時間を過ぎるとErrLockNotAcquired
func TestLocalLocker_SameKeyTimesOut(t *testing.T) {
	l := NewLocalLocker(30 * time.Millisecond)

	release, err := l.Acquire(context.Background(), "checkout:u1")
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(context.Background(), "checkout:u1")
	assert.ErrorIs(t, err, repo.ErrLockNotAcquired)
}

// Test: 別のkeyは互いにブロックしない
func TestLocalLocker_DifferentKeysIndependent(t *testing.T) {
	l := NewLocalLocker(30 * time.Millisecond)

	r1, err := l.Acquire(context.Background(), "checkout:u1")
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(context.Background(), "checkout:u2")
	require.NoError(t, err)
	r2()
}

// Test: 解放後は再取得でき、使い終わったkeyは残らない
func TestLocalLocker_ReleaseAndCleanup(t *testing.T) {
	l := NewLocalLocker(time.Second)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
	release() // 2回目は何もしない

	release, err = l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

// Test: 同時に走らせても臨界区間は1つずつ
func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker(5 * time.Second)

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

// Test: ctxがキャンセルされたら待たずに返る
func TestLocalLocker_ContextCanceled(t *testing.T) {
	l := NewLocalLocker(time.Minute)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
