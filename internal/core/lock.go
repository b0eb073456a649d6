package core

import (
	"context"
	"sync"
)

// Locker serializes import runs per kind. Acquire does not wait: when the
// kind is held elsewhere it fails with an error matching ErrImportInProgress.
// The returned release function is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, kind Kind) (release func(), err error)
}

// LocalLocker guards kinds within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[Kind]bool
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[Kind]bool)}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(ctx context.Context, kind Kind) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[kind] {
		return nil, &KindLockedError{Kind: kind}
	}
	l.held[kind] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, kind)
			l.mu.Unlock()
		})
	}, nil
}
