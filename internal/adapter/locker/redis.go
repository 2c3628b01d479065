package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hospital:lock:"

// retryInterval is how often WithLock polls a held key.
const retryInterval = 50 * time.Millisecond

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a locker that uses one Redis key per lock. ttl bounds
// how long a crashed holder can block others.
func NewRedis(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *redisLocker) acquire(ctx context.Context, key, token string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *redisLocker) run(ctx context.Context, key, token string, fn func(ctx context.Context) error) error {
	defer func() {
		// Release even when ctx was cancelled during fn.
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// WithLock implements Locker.
func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.acquire(ctx, key, token)
		if err != nil {
			return err
		}
		if ok {
			return l.run(ctx, key, token, fn)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryLock implements Locker.
func (l *redisLocker) TryLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()
	ok, err := l.acquire(ctx, key, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotAcquired
	}
	return l.run(ctx, key, token, fn)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
