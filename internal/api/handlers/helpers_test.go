package handlers

import (
	"context"
	"testing"
	"time"

	"auction-house/internal/clock"
	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/lock"
	store "auction-house/internal/infrastructure/redis"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	mr     *miniredis.Miniredis
	client *redis.Client
	bids   *services.BidService
	items  *services.ItemService
	clock  clock.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewFixed(testNow)
	log := logger.NewNop()
	itemStore := store.NewItemStore(client)
	locker := lock.NewRedisLocker(client, lock.Options{TTL: 2 * time.Second, RetryDelay: time.Millisecond, Retries: 3}, log)

	return &fixture{
		mr:     mr,
		client: client,
		bids:   services.NewBidService(locker, itemStore, store.NewBidStore(client), store.NewEventPublisher(client), clk, log),
		items: services.NewItemService(itemStore, store.NewViewCounter(client), store.NewLikeStore(client),
			store.NewRankingStore(client), clk, log),
		clock: clk,
	}
}

func (f *fixture) seedItem(t *testing.T, id string, price float64, ending time.Duration) {
	t.Helper()
	require.NoError(t, store.NewItemStore(f.client).CreateItem(context.Background(), &domain.Item{
		ID:        id,
		Name:      "Item " + id,
		OwnerID:   "owner-1",
		CreatedAt: testNow.Add(-time.Hour),
		EndingAt:  testNow.Add(ending),
		Price:     price,
	}))
}
