package audiotag

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// pathLocks serialises operations per audio file. Waiters queue in FIFO
// order and can give up through their context.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// lockKey normalises path so that different spellings of the same file share
// a lock.
func lockKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// acquire blocks until the lock for path is held or ctx is done. The returned
// func releases it.
func (p *pathLocks) acquire(ctx context.Context, path string) (func(), error) {
	key := lockKey(path)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pathLock{sem: semaphore.NewWeighted(1)}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		p.drop(key, l)
		return nil, err
	}
	return func() {
		l.sem.Release(1)
		p.drop(key, l)
	}, nil
}

func (p *pathLocks) drop(key string, l *pathLock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(p.locks, key)
	}
}

func (p *pathLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
