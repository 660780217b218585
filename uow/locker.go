package uow

import (
	"context"
	"slices"
	"sync"
)

// Locker serializes unit of work scopes competing for the same keys.
type Locker interface {
	// Acquire blocks until the lock over all given keys is held or the
	// context is done. Acquiring with no keys succeeds immediately.
	Acquire(ctx context.Context, keys ...string) (Lock, error)
}

// Lock is a held lock. Release is idempotent.
type Lock interface {
	Release(ctx context.Context) error
}

// NullLocker never blocks. It is the default locker of a Builder and fits
// repositories whose storage already serializes concurrent writers.
type NullLocker struct{}

func (NullLocker) Acquire(context.Context, ...string) (Lock, error) {
	return nullLock{}, nil
}

type nullLock struct{}

func (nullLock) Release(context.Context) error { return nil }

// KeyedMutexLocker serializes scopes per key inside one process. Keys are
// acquired in sorted order so two scopes locking overlapping key sets cannot
// deadlock each other.
type KeyedMutexLocker struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

type keyEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutexLocker creates an empty in-process locker.
func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{entries: map[string]*keyEntry{}}
}

func (l *KeyedMutexLocker) Acquire(ctx context.Context, keys ...string) (Lock, error) {
	// Repeated keys count once, otherwise the second copy would wait on the
	// first forever.
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]string, 0, len(sorted))
	for _, key := range sorted {
		if err := l.acquireKey(ctx, key); err != nil {
			l.releaseKeys(held)
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return lockFunc(func(context.Context) error {
		once.Do(func() { l.releaseKeys(held) })
		return nil
	}), nil
}

func (l *KeyedMutexLocker) acquireKey(ctx context.Context, key string) error {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &keyEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, entry)
		return ctx.Err()
	}
}

func (l *KeyedMutexLocker) releaseKeys(keys []string) {
	for _, key := range keys {
		l.mu.Lock()
		entry := l.entries[key]
		l.mu.Unlock()
		<-entry.ch
		l.unref(key, entry)
	}
}

// unref drops one reference to the key entry, removing the entry when nobody
// holds or waits for it anymore.
func (l *KeyedMutexLocker) unref(key string, entry *keyEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

type lockFunc func(ctx context.Context) error

func (f lockFunc) Release(ctx context.Context) error { return f(ctx) }
