package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker using in-memory storage
type MemoryLocker struct {
	mu     sync.Mutex
	opts   Options
	locks  map[string]*memoryLock
	done   chan struct{}
	closed bool
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

// creates a new in-memory locker
func NewMemoryLocker(opts Options) *MemoryLocker {
	locker := &MemoryLocker{
		opts:  opts.withDefaults(),
		locks: make(map[string]*memoryLock),
		done:  make(chan struct{}),
	}

	go locker.cleanupLoop()

	return locker
}

// blocks until key is free, then holds it until the returned Unlock is called or the TTL passes
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	token, err := acquire(ctx, l.opts, func(_ context.Context, token string) (bool, error) {
		return l.tryLock(key, token), nil
	})
	if err != nil {
		return nil, err
	}

	return func(context.Context) error {
		l.unlock(key, token)
		return nil
	}, nil
}

func (l *MemoryLocker) tryLock(key, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if held, exists := l.locks[key]; exists && now.Before(held.expiresAt) {
		return false
	}

	l.locks[key] = &memoryLock{
		token:     token,
		expiresAt: now.Add(l.opts.TTL),
	}

	return true
}

// only the holder that took the lock may release it
func (l *MemoryLocker) unlock(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, exists := l.locks[key]; exists && held.token == token {
		delete(l.locks, key)
	}
}

// stops the cleanup goroutine
func (l *MemoryLocker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.done)
	return nil
}

func (l *MemoryLocker) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *MemoryLocker) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, held := range l.locks {
		if now.After(held.expiresAt) {
			delete(l.locks, key)
		}
	}
}
