// Package lock serializes operations on a single escrow record.
package lock

import (
	"context"
	"strconv"
	"sync"
)

// Locker acquires an exclusive hold on key until the returned release func
// is called. Lock blocks until the hold is acquired or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process Locker keyed by string. Entries are dropped once
// nobody holds or waits on them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// RegistryKey is the lock key for a mint registry.
func RegistryKey(mintID string) string { return "registry:" + mintID }

// OrderKey is the lock key for an order.
func OrderKey(orderID uint64) string { return "order:" + strconv.FormatUint(orderID, 10) }
