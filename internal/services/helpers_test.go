package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auction-house/internal/clock"
	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/lock"
	store "auction-house/internal/infrastructure/redis"
	"auction-house/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	mr        *miniredis.Miniredis
	client    *redis.Client
	items     *store.ItemStore
	bids      *store.BidStore
	publisher *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &harness{
		mr:        mr,
		client:    client,
		items:     store.NewItemStore(client),
		bids:      store.NewBidStore(client),
		publisher: &recordingPublisher{},
	}
}

func (h *harness) locker(opts lock.Options) *lock.RedisLocker {
	return lock.NewRedisLocker(h.client, opts, logger.NewNop())
}

func (h *harness) bidService(t *testing.T, locker domain.Locker, now time.Time) *BidService {
	t.Helper()
	return NewBidService(locker, h.items, h.bids, h.publisher, clock.NewFixed(now), logger.NewNop())
}

func (h *harness) seedItem(t *testing.T, id string, price float64) {
	t.Helper()
	require.NoError(t, h.items.CreateItem(context.Background(), &domain.Item{
		ID:        id,
		Name:      "Item " + id,
		OwnerID:   "owner-1",
		CreatedAt: testNow.Add(-time.Hour),
		EndingAt:  testNow.Add(time.Hour),
		Price:     price,
	}))
}

func fastLockOptions() lock.Options {
	return lock.Options{TTL: 2 * time.Second, RetryDelay: 2 * time.Millisecond, Retries: 500}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
	err    error
}

func (p *recordingPublisher) PublishBidEvent(_ context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []*domain.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.BidEvent(nil), p.events...)
}

// expiredLocker hands the critical section a lease whose TTL already ran out.
type expiredLocker struct{}

func (expiredLocker) WithLock(ctx context.Context, _ string, fn domain.CriticalSection) error {
	return fn(ctx, expiredLease{})
}

type expiredLease struct{}

func (expiredLease) Expired() bool       { return true }
func (expiredLease) Err() error          { return domain.ErrLockExpired }
func (expiredLease) Deadline() time.Time { return testNow.Add(-time.Second) }

var errStoreDown = errors.New("store down")
