package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/keys"

	"github.com/go-redis/redis/v8"
)

type BidStore struct {
	client *redis.Client
}

func NewBidStore(client *redis.Client) *BidStore {
	return &BidStore{client: client}
}

// ApplyBid commits the history append, item update and price ranking bump as
// one MULTI/EXEC block. The ranking is incremented by the amount, not set.
func (s *BidStore) ApplyBid(ctx context.Context, t domain.BidTransition) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, keys.BidHistory(t.ItemID), serializeHistory(t.Amount, t.CreatedAt))
		pipe.HSet(ctx, keys.Item(t.ItemID),
			fieldBids, t.Bids,
			fieldPrice, formatAmount(t.Amount),
			fieldHighestBidUserID, t.UserID,
		)
		pipe.ZIncrBy(ctx, keys.ItemsByPrice(), t.Amount, t.ItemID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply bid on %s: %w", t.ItemID, err)
	}
	return nil
}

// GetBidHistory pages from the tail of the list and returns newest first.
func (s *BidStore) GetBidHistory(ctx context.Context, itemID string, offset, count int) ([]domain.Bid, error) {
	if count <= 0 {
		return []domain.Bid{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	start := int64(-offset - count)
	stop := int64(-1 - offset)
	raw, err := s.client.LRange(ctx, keys.BidHistory(itemID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("bid history %s: %w", itemID, err)
	}

	bids := make([]domain.Bid, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		bid, err := deserializeHistory(raw[i])
		if err != nil {
			return nil, fmt.Errorf("bid history %s: %w", itemID, err)
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

func serializeHistory(amount float64, createdAt time.Time) string {
	return formatAmount(amount) + ":" + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

func deserializeHistory(stored string) (domain.Bid, error) {
	amount, createdAt, ok := strings.Cut(stored, ":")
	if !ok {
		return domain.Bid{}, fmt.Errorf("malformed history entry %q", stored)
	}
	a, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("malformed history amount %q: %w", stored, err)
	}
	ms, err := strconv.ParseInt(createdAt, 10, 64)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("malformed history time %q: %w", stored, err)
	}
	return domain.Bid{Amount: a, CreatedAt: time.UnixMilli(ms).UTC()}, nil
}
