// Package locker guards critical sections per key, either inside the
// process or across processes through Redis.
package locker

import (
	"context"
	"errors"
	"sync"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker is used by the service to serialize work per conversation and to
// keep a single reply check running at a time.
type Locker interface {
	// WithLock waits until key is free, then runs fn while holding it.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
	// TryLock runs fn only when key is free and returns ErrLockNotAcquired otherwise.
	TryLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localEntry)}
}

func (l *Local) entry(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) release(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// WithLock implements Locker.
func (l *Local) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := l.entry(key)
	defer l.release(key, e)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}

// TryLock implements Locker.
func (l *Local) TryLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := l.entry(key)
	defer l.release(key, e)

	select {
	case e.ch <- struct{}{}:
	default:
		return ErrLockNotAcquired
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}
