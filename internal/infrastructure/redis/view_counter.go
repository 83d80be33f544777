package redis

import (
	"context"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/internal/keys"

	"github.com/go-redis/redis/v8"
)

// KEYS[1] item views HyperLogLog, KEYS[2] item hash, KEYS[3] views ranking.
// ARGV[1] item id, ARGV[2] user id.
// Returns -1 for a missing item, 1 when the view counted, 0 for a repeat.
var incrementViewScript = redis.NewScript(`
	local itemViewsKey = KEYS[1]
	local itemKey = KEYS[2]
	local itemsByViewsKey = KEYS[3]
	local itemId = ARGV[1]
	local userId = ARGV[2]

	if redis.call('EXISTS', itemKey) == 0 then
		return -1
	end

	local inserted = redis.call('PFADD', itemViewsKey, userId)
	if inserted == 1 then
		redis.call('HINCRBY', itemKey, 'views', 1)
		redis.call('ZINCRBY', itemsByViewsKey, 1, itemId)
	end
	return inserted
`)

type ViewCounter struct {
	client *redis.Client
}

func NewViewCounter(client *redis.Client) *ViewCounter {
	return &ViewCounter{client: client}
}

// IncrementView reports whether this call counted. The dedup set is
// probabilistic, so a first view may rarely be treated as a repeat.
func (v *ViewCounter) IncrementView(ctx context.Context, itemID, userID string) (bool, error) {
	keyList := []string{keys.ItemViews(itemID), keys.Item(itemID), keys.ItemsByViews()}

	result, err := incrementViewScript.Run(ctx, v.client, keyList, itemID, userID).Int64()
	if err != nil {
		return false, fmt.Errorf("increment view %s: %w", itemID, err)
	}
	if result < 0 {
		return false, domain.ErrItemNotFound
	}
	return result == 1, nil
}
