package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/keys"

	"github.com/go-redis/redis/v8"
)

// KEYS: item hash, bid history, views ranking, endingAt ranking, price ranking.
// ARGV[1]: item id.
// Returns {removed, viewsFixed, endingFixed, priceFixed} as 0/1 flags.
var reconcileScript = redis.NewScript(`
	local itemKey = KEYS[1]
	local historyKey = KEYS[2]
	local byViews = KEYS[3]
	local byEndingAt = KEYS[4]
	local byPrice = KEYS[5]
	local id = ARGV[1]

	if redis.call('EXISTS', itemKey) == 0 then
		redis.call('ZREM', byViews, id)
		redis.call('ZREM', byEndingAt, id)
		redis.call('ZREM', byPrice, id)
		return {1, 0, 0, 0}
	end

	local function diverged(indexKey, want)
		local have = redis.call('ZSCORE', indexKey, id)
		if not have then
			return true
		end
		local delta = math.abs(tonumber(have) - want)
		return delta > 1e-9 * math.max(1, math.abs(want))
	end

	local fixed = {0, 0, 0, 0}

	local views = tonumber(redis.call('HGET', itemKey, 'views') or '0') or 0
	if diverged(byViews, views) then
		redis.call('ZADD', byViews, views, id)
		fixed[2] = 1
	end

	local endingAt = tonumber(redis.call('HGET', itemKey, 'endingAt') or '0') or 0
	if diverged(byEndingAt, endingAt) then
		redis.call('ZADD', byEndingAt, endingAt, id)
		fixed[3] = 1
	end

	local total = 0
	for _, entry in ipairs(redis.call('LRANGE', historyKey, 0, -1)) do
		local amount = tonumber(string.match(entry, '^([^:]+)'))
		if amount then
			total = total + amount
		end
	end
	if diverged(byPrice, total) then
		redis.call('ZADD', byPrice, total, id)
		fixed[4] = 1
	end

	return fixed
`)

type RankingStore struct {
	client *redis.Client
}

func NewRankingStore(client *redis.Client) *RankingStore {
	return &RankingStore{client: client}
}

func (s *RankingStore) TopByPrice(ctx context.Context, limit int) ([]domain.RankEntry, error) {
	return s.top(ctx, keys.ItemsByPrice(), limit)
}

func (s *RankingStore) TopByViews(ctx context.Context, limit int) ([]domain.RankEntry, error) {
	return s.top(ctx, keys.ItemsByViews(), limit)
}

func (s *RankingStore) top(ctx context.Context, key string, limit int) ([]domain.RankEntry, error) {
	if limit <= 0 {
		return []domain.RankEntry{}, nil
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", key, err)
	}
	return toEntries(zs), nil
}

// EndingSoonest lists items whose ending time is strictly after now, soonest first.
func (s *RankingStore) EndingSoonest(ctx context.Context, now time.Time, offset, count int) ([]domain.RankEntry, error) {
	if count <= 0 {
		return []domain.RankEntry{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	zs, err := s.client.ZRangeByScoreWithScores(ctx, keys.ItemsByEndingAt(), &redis.ZRangeBy{
		Min:    "(" + strconv.FormatInt(now.UnixMilli(), 10),
		Max:    "+inf",
		Offset: int64(offset),
		Count:  int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("rank ending soonest: %w", err)
	}
	return toEntries(zs), nil
}

// IndexedItemIDs pages through every item known to the endingAt ranking.
func (s *RankingStore) IndexedItemIDs(ctx context.Context, offset, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	ids, err := s.client.ZRange(ctx, keys.ItemsByEndingAt(), int64(offset), int64(offset+count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list indexed items: %w", err)
	}
	return ids, nil
}

// ReconcileItem repairs the three rankings of one item against its hash and
// bid history, atomically on the server.
func (s *RankingStore) ReconcileItem(ctx context.Context, itemID string) (domain.ReconcileOutcome, error) {
	keyList := []string{
		keys.Item(itemID),
		keys.BidHistory(itemID),
		keys.ItemsByViews(),
		keys.ItemsByEndingAt(),
		keys.ItemsByPrice(),
	}
	flags, err := reconcileScript.Run(ctx, s.client, keyList, itemID).Int64Slice()
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("reconcile %s: %w", itemID, err)
	}
	if len(flags) != 4 {
		return domain.ReconcileOutcome{}, fmt.Errorf("reconcile %s: unexpected reply %v", itemID, flags)
	}
	return domain.ReconcileOutcome{
		Removed:     flags[0] == 1,
		ViewsFixed:  flags[1] == 1,
		EndingFixed: flags[2] == 1,
		PriceFixed:  flags[3] == 1,
	}, nil
}

func toEntries(zs []redis.Z) []domain.RankEntry {
	entries := make([]domain.RankEntry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.RankEntry{ItemID: id, Score: z.Score})
	}
	return entries
}
