package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/lock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBidSequence(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)
	ctx := context.Background()

	require.NoError(t, svc.PlaceBid(ctx, "item-1", "u1", 150, testNow))
	assert.ErrorIs(t, svc.PlaceBid(ctx, "item-1", "u2", 120, testNow.Add(time.Second)), domain.ErrBidTooLow)
	require.NoError(t, svc.PlaceBid(ctx, "item-1", "u3", 200, testNow.Add(2*time.Second)))

	item, err := h.items.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, item.Price)
	assert.Equal(t, int64(2), item.Bids)
	assert.Equal(t, "u3", item.HighestBidUserID)

	history, err := svc.GetBidHistory(ctx, "item-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 200.0, history[0].Amount)
	assert.Equal(t, 150.0, history[1].Amount)
	assert.True(t, history[0].CreatedAt.Equal(testNow.Add(2*time.Second)))

	score, err := h.mr.ZScore("items:price", "item-1")
	require.NoError(t, err)
	assert.Equal(t, 350.0, score, "price ranking accumulates bid amounts")

	events := h.publisher.published()
	require.Len(t, events, 2)
	assert.Equal(t, domain.BidAccepted, events[0].Type)
	assert.Equal(t, 100.0, events[0].PreviousPrice)
	assert.Equal(t, 150.0, events[1].PreviousPrice)
	assert.Equal(t, int64(2), events[1].Bids)
}

func TestPlaceBidEqualToPriceIsAccepted(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)

	require.NoError(t, svc.PlaceBid(context.Background(), "item-1", "u1", 100, testNow))
}

func TestPlaceBidRejectsLateBid(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow.Add(time.Hour))

	err := svc.PlaceBid(context.Background(), "item-1", "u1", 500, testNow)
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)

	item, err := h.items.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, item.Price)
	assert.Zero(t, item.Bids)
	assert.False(t, h.mr.Exists("history#item-1"))
	assert.Empty(t, h.publisher.published())
}

func TestPlaceBidTooLowCheckedBeforeClosed(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow.Add(2*time.Hour))

	err := svc.PlaceBid(context.Background(), "item-1", "u1", 50, testNow)
	assert.ErrorIs(t, err, domain.ErrBidTooLow)
}

func TestPlaceBidMissingItem(t *testing.T) {
	h := newHarness(t)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)

	err := svc.PlaceBid(context.Background(), "missing", "u1", 10, testNow)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.False(t, h.mr.Exists("items#missing"))
	assert.False(t, h.mr.Exists("lock:missing"))
}

func TestPlaceBidInvalidInput(t *testing.T) {
	h := newHarness(t)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)
	ctx := context.Background()

	assert.ErrorIs(t, svc.PlaceBid(ctx, "", "u1", 10, testNow), domain.ErrInvalidBid)
	assert.ErrorIs(t, svc.PlaceBid(ctx, "item-1", "", 10, testNow), domain.ErrInvalidBid)
	assert.ErrorIs(t, svc.PlaceBid(ctx, "item-1", "u1", 0, testNow), domain.ErrInvalidBid)
	assert.ErrorIs(t, svc.PlaceBid(ctx, "item-1", "u1", -5, testNow), domain.ErrInvalidBid)
}

func TestPlaceBidLockContention(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	require.NoError(t, h.mr.Set("lock:item-1", "another-process"))

	opts := lock.Options{TTL: time.Second, RetryDelay: 5 * time.Millisecond, Retries: 4}
	svc := h.bidService(t, h.locker(opts), testNow)

	start := time.Now()
	err := svc.PlaceBid(context.Background(), "item-1", "u1", 150, testNow)
	assert.ErrorIs(t, err, domain.ErrLockUnavailable)
	assert.True(t, domain.Retryable(err))
	assert.GreaterOrEqual(t, time.Since(start), 3*opts.RetryDelay)

	item, err := h.items.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, item.Price)
	assert.Zero(t, item.Bids)
}

func TestPlaceBidExpiredLeaseWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	svc := h.bidService(t, expiredLocker{}, testNow)

	err := svc.PlaceBid(context.Background(), "item-1", "u1", 150, testNow)
	assert.ErrorIs(t, err, domain.ErrLockExpired)

	item, err := h.items.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, item.Price)
	assert.False(t, h.mr.Exists("history#item-1"))
	score, err := h.mr.ZScore("items:price", "item-1")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestPlaceBidPublishFailureKeepsBid(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	h.publisher.err = errStoreDown
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)

	require.NoError(t, svc.PlaceBid(context.Background(), "item-1", "u1", 150, testNow))

	item, err := h.items.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 150.0, item.Price)
}

func TestPlaceBidConcurrentBidders(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 100)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)

	var wg sync.WaitGroup
	results := make(map[float64]error)
	var mu sync.Mutex
	for _, amount := range []float64{110, 120} {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			err := svc.PlaceBid(context.Background(), "item-1", "u", amount, testNow)
			mu.Lock()
			results[amount] = err
			mu.Unlock()
		}(amount)
	}
	wg.Wait()

	require.NoError(t, results[120], "120 beats both 100 and 110")
	accepted := 1
	if results[110] == nil {
		accepted++
	} else {
		assert.ErrorIs(t, results[110], domain.ErrBidTooLow)
	}

	item, err := h.items.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, item.Price)
	assert.Equal(t, int64(accepted), item.Bids)

	history, err := svc.GetBidHistory(context.Background(), "item-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, accepted)
	assert.Equal(t, 120.0, history[0].Amount)

	events := h.publisher.published()
	require.Len(t, events, accepted)
	assert.Equal(t, 100.0, events[0].PreviousPrice)
}

func TestPlaceBidManyBiddersKeepCountConsistent(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 1)
	svc := h.bidService(t, h.locker(fastLockOptions()), testNow)

	const bidders = 15
	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// the same amount every time so every bid is acceptable
			assert.NoError(t, svc.PlaceBid(context.Background(), "item-1", "u", 5, testNow))
		}()
	}
	wg.Wait()

	item, err := h.items.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(bidders), item.Bids)
	n, err := h.client.LLen(context.Background(), "history#item-1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(bidders), n)
}
