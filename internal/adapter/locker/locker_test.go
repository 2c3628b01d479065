package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, time.Minute), mr
}

func lockers(t *testing.T) map[string]Locker {
	redisLocker, _ := newRedisLocker(t)
	return map[string]Locker{
		"local": NewLocal(),
		"redis": redisLocker,
	}
}

func TestTryLockRejectsHeldKey(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			inner := make(chan error, 1)

			err := l.TryLock(ctx, "reply-check", func(ctx context.Context) error {
				inner <- l.TryLock(ctx, "reply-check", func(context.Context) error { return nil })
				return nil
			})
			require.NoError(t, err)
			assert.ErrorIs(t, <-inner, ErrLockNotAcquired)

			// Released afterwards.
			assert.NoError(t, l.TryLock(ctx, "reply-check", func(context.Context) error { return nil }))
		})
	}
}

func TestWithLockSerializes(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var active, maxActive int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := l.WithLock(ctx, "CONV-AAAAAAAA", func(context.Context) error {
						n := atomic.AddInt32(&active, 1)
						for {
							m := atomic.LoadInt32(&maxActive)
							if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
								break
							}
						}
						time.Sleep(2 * time.Millisecond)
						atomic.AddInt32(&active, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), maxActive)
		})
	}
}

func TestWithLockHonoursContext(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			held := make(chan struct{})
			done := make(chan struct{})
			go func() {
				_ = l.WithLock(context.Background(), "k", func(context.Context) error {
					close(held)
					<-done
					return nil
				})
			}()
			<-held

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := l.WithLock(ctx, "k", func(context.Context) error { return nil })
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			close(done)
		})
	}
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	err := l.TryLock(ctx, "k", func(context.Context) error {
		// Simulate expiry and takeover by another holder.
		mr.Set(keyPrefix+"k", "someone-else")
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get(keyPrefix + "k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLocalForgetsIdleKeys(t *testing.T) {
	l := NewLocal()
	require.NoError(t, l.WithLock(context.Background(), "a", func(context.Context) error { return nil }))
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}
