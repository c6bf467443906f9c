package feedback

import (
	"context"
	"sync"
)

// keyQueue serializes work per key. Waiters for a key are admitted in arrival
// order; entries are dropped once no caller holds or waits for the key.
type keyQueue struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyQueue() *keyQueue {
	return &keyQueue{locks: make(map[string]*keyLock)}
}

func (q *keyQueue) acquire(ctx context.Context, key string) (func(), error) {
	q.mu.Lock()
	l, ok := q.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		q.locks[key] = l
	}
	l.refs++
	q.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		q.unref(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			q.unref(key, l)
		})
	}, nil
}

func (q *keyQueue) unref(key string, l *keyLock) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(q.locks, key)
	}
}

func (q *keyQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.locks)
}
