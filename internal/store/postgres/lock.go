package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/roster/internal/core"
)

// AdvisoryLocker is a core.Locker shared by every process using the same
// database. Each held kind pins one pooled connection until released.
type AdvisoryLocker struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewAdvisoryLocker creates a locker. namespace prefixes the lock keys so
// unrelated applications on the database do not collide.
func NewAdvisoryLocker(pool *pgxpool.Pool, namespace string) *AdvisoryLocker {
	if namespace == "" {
		namespace = "roster"
	}
	return &AdvisoryLocker{pool: pool, namespace: namespace}
}

var _ core.Locker = (*AdvisoryLocker)(nil)

// Acquire implements core.Locker.
func (l *AdvisoryLocker) Acquire(ctx context.Context, kind core.Kind) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	key := l.namespace + ":import:" + string(kind)
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, &core.KindLockedError{Kind: kind}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Unlock on a fresh context: the run's context may be cancelled.
			if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
				// Closing the session drops every advisory lock it holds.
				_ = conn.Conn().Close(context.Background())
			}
			conn.Release()
		})
	}, nil
}
