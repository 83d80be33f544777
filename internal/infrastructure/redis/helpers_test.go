package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"auction-house/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func seedItem(t *testing.T, client *redis.Client, id string, price float64) *domain.Item {
	t.Helper()
	item := &domain.Item{
		ID:        id,
		Name:      "Item " + id,
		OwnerID:   "owner-1",
		CreatedAt: testNow,
		EndingAt:  testNow.Add(time.Hour),
		Price:     price,
	}
	require.NoError(t, NewItemStore(client).CreateItem(context.Background(), item))
	return item
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
