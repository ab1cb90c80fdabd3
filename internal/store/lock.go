package store

import (
	"context"
	"sync"
)

// Locker hands out named exclusive locks. Locks taken through a shared
// backend exclude every process using that backend.
type Locker interface {
	// Lock blocks until name is free or ctx is done. The returned func
	// releases the lock and may be called more than once.
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// LocalLocker is a Locker for a single process. The zero value is ready to use.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	held chan struct{}
	refs int
}

func (l *LocalLocker) Lock(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*localLock)
	}
	lk, ok := l.locks[name]
	if !ok {
		lk = &localLock{held: make(chan struct{}, 1)}
		l.locks[name] = lk
	}
	lk.refs++
	l.mu.Unlock()

	// a free lock is taken even if ctx is already done
	select {
	case lk.held <- struct{}{}:
		return l.unlocker(name, lk), nil
	default:
	}

	select {
	case lk.held <- struct{}{}:
		return l.unlocker(name, lk), nil
	case <-ctx.Done():
		l.release(name, lk)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) unlocker(name string, lk *localLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.held
			l.release(name, lk)
		})
	}
}

func (l *LocalLocker) release(name string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, name)
	}
}

var _ Locker = (*LocalLocker)(nil)
