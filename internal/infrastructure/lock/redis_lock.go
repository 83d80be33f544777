// Package lock implements a best-effort, single-store mutual exclusion lock on
// Redis. A lock is a key holding a random token with a TTL; the store enforces
// the hard expiry and the holder gets a soft expiry signal through its Lease.
package lock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/keys"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultTTL        = 2 * time.Second
	DefaultRetryDelay = 100 * time.Millisecond
	DefaultRetries    = 20

	releaseTimeout = time.Second
)

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

type Options struct {
	TTL        time.Duration
	RetryDelay time.Duration
	Retries    int
}

func DefaultOptions() Options {
	return Options{
		TTL:        DefaultTTL,
		RetryDelay: DefaultRetryDelay,
		Retries:    DefaultRetries,
	}
}

type RedisLocker struct {
	client   *redis.Client
	opts     Options
	log      logger.Logger
	newToken func() string
}

func NewRedisLocker(client *redis.Client, opts Options, log logger.Logger) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &RedisLocker{
		client:   client,
		opts:     opts,
		log:      log,
		newToken: utils.NewToken,
	}
}

// WithLock runs fn while holding the lock for resource. It returns
// domain.ErrLockUnavailable once every attempt has met contention. The lock is
// released on every exit path of fn, including a panic.
func (l *RedisLocker) WithLock(ctx context.Context, resource string, fn domain.CriticalSection) error {
	lockKey := keys.Lock(resource)

	for attempt := 1; attempt <= l.opts.Retries; attempt++ {
		token := l.newToken()

		// The store's TTL starts no earlier than this instant.
		start := time.Now()
		acquired, err := l.client.SetNX(ctx, lockKey, token, l.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire %s: %w", lockKey, err)
		}
		if acquired {
			return l.hold(ctx, lockKey, token, start, fn)
		}

		if attempt == l.opts.Retries {
			break
		}
		if err := sleep(ctx, l.opts.RetryDelay); err != nil {
			return err
		}
	}

	l.log.Warn("Lock retries exhausted", "key", lockKey, "retries", l.opts.Retries)
	return domain.ErrLockUnavailable
}

func (l *RedisLocker) hold(ctx context.Context, lockKey, token string, start time.Time, fn domain.CriticalSection) error {
	lease := newLease(token, start, l.opts.TTL)
	defer lease.stop()
	defer l.release(ctx, lockKey, token)

	return fn(ctx, lease)
}

// release must run even when the caller's context is already done.
func (l *RedisLocker) release(parent context.Context, lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), releaseTimeout)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Int64()
	if err != nil {
		l.log.Error("Failed to release lock", "key", lockKey, "error", err)
		return
	}
	if deleted == 0 {
		l.log.Warn("Lock was no longer ours at release", "key", lockKey)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lease is the soft expiry signal for one successful acquisition.
type Lease struct {
	token    string
	deadline time.Time
	expired  atomic.Bool
	timer    *time.Timer
}

func newLease(token string, start time.Time, ttl time.Duration) *Lease {
	l := &Lease{
		token:    token,
		deadline: start.Add(ttl),
	}
	l.timer = time.AfterFunc(time.Until(l.deadline), func() {
		l.expired.Store(true)
	})
	return l
}

func (l *Lease) Expired() bool {
	return l.expired.Load()
}

// Err returns domain.ErrLockExpired once the TTL has elapsed.
func (l *Lease) Err() error {
	if l.Expired() {
		return domain.ErrLockExpired
	}
	return nil
}

func (l *Lease) Deadline() time.Time {
	return l.deadline
}

func (l *Lease) Token() string {
	return l.token
}

func (l *Lease) stop() {
	l.timer.Stop()
}
