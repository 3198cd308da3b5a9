// Package lock provides per-key leases used to keep at most one generation
// run active for a class group.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld is returned when another holder owns the lease.
	ErrHeld = errors.New("lock held by another holder")
	// ErrLost is the cause attached to a lease context when renewal fails.
	ErrLost = errors.New("lock lease lost")
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`

// Locker hands out exclusive leases keyed by an arbitrary string.
type Locker interface {
	Acquire(ctx context.Context, key string) (*Lease, error)
}

// Lease is a held lock. Its context is cancelled when the lease is released
// or, for Redis leases, when a renewal fails; context.Cause then reports ErrLost.
type Lease struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	done    chan struct{}
	release func(ctx context.Context) error

	once sync.Once
	err  error
}

func newLease(parent context.Context, release func(ctx context.Context) error) *Lease {
	ctx, cancel := context.WithCancelCause(parent)
	return &Lease{ctx: ctx, cancel: cancel, done: make(chan struct{}), release: release}
}

// Context is derived from the context passed to Acquire.
func (l *Lease) Context() context.Context {
	return l.ctx
}

// Release gives the lease back. It is safe to call more than once.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.cancel(context.Canceled)
		<-l.done
		l.err = l.release(ctx)
	})
	return l.err
}

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker implements Locker with SET NX leases that are renewed while held
// and released with a compare-and-delete.
type RedisLocker struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

// NewRedisLocker builds a Redis backed locker. Leases expire after ttl if the holder stops renewing.
func NewRedisLocker(client redisClient, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

// Acquire takes the lease for key or returns ErrHeld.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	lease := newLease(ctx, func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		return nil
	})
	go l.renew(lease, fullKey, token)
	return lease, nil
}

// renew extends the lease every third of its ttl until the lease context ends.
func (l *RedisLocker) renew(lease *Lease, key, token string) {
	defer close(lease.done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-lease.ctx.Done():
			return
		case <-ticker.C:
			renewed, err := l.client.Eval(context.WithoutCancel(lease.ctx), renewScript, []string{key}, token, l.ttl.Milliseconds()).Int64()
			if err != nil || renewed == 0 {
				if err == nil {
					err = fmt.Errorf("lease %s is owned by another holder", key)
				}
				lease.cancel(fmt.Errorf("%w: %v", ErrLost, err))
				return
			}
		}
	}
}

// LocalLocker is an in-process Locker used when Redis is not configured. It
// only serialises holders inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns an empty in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire takes the lease for key or returns ErrHeld.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	lease := newLease(ctx, func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	})
	close(lease.done)
	return lease, nil
}
