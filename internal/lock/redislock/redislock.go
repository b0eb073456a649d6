// Package redislock is a core.Locker shared through Redis, for deployments
// that run several server processes against one store.
package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/roster/internal/core"
)

// DefaultTTL bounds how long a crashed holder blocks a kind. It must exceed
// the import timeout.
const DefaultTTL = 15 * time.Minute

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone.
// KEYS[1] = lock key
// ARGV[1] = holder token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker takes per-kind locks with SET NX PX.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// Options configures a Locker.
type Options struct {
	Prefix string        // key prefix, default "roster:import:"
	TTL    time.Duration // default DefaultTTL
	Logger *slog.Logger
}

// New creates a Locker on client.
func New(client redis.UniversalClient, opts Options) *Locker {
	l := &Locker{client: client, prefix: opts.Prefix, ttl: opts.TTL, logger: opts.Logger}
	if l.prefix == "" {
		l.prefix = "roster:import:"
	}
	if l.ttl <= 0 {
		l.ttl = DefaultTTL
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

var _ core.Locker = (*Locker)(nil)

// Acquire implements core.Locker.
func (l *Locker) Acquire(ctx context.Context, kind core.Kind) (func(), error) {
	key := l.prefix + string(kind)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", kind, err)
	}
	if !ok {
		return nil, &core.KindLockedError{Kind: kind}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release import lock", "kind", kind, "error", err)
			}
		})
	}, nil
}
