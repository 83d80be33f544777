package redis

import (
	"context"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/internal/keys"

	"github.com/go-redis/redis/v8"
)

// LikeStore keeps a per-user set of liked item ids and the item's like
// counter. Membership and counter are separate commands.
type LikeStore struct {
	client *redis.Client
}

func NewLikeStore(client *redis.Client) *LikeStore {
	return &LikeStore{client: client}
}

func (s *LikeStore) AddLike(ctx context.Context, itemID, userID string) (bool, error) {
	if err := s.ensureItem(ctx, itemID); err != nil {
		return false, err
	}

	inserted, err := s.client.SAdd(ctx, keys.UserLikes(userID), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("like %s: %w", itemID, err)
	}
	if inserted == 0 {
		return false, nil
	}
	if err := s.client.HIncrBy(ctx, keys.Item(itemID), fieldLikes, 1).Err(); err != nil {
		return true, fmt.Errorf("count like %s: %w", itemID, err)
	}
	return true, nil
}

func (s *LikeStore) RemoveLike(ctx context.Context, itemID, userID string) (bool, error) {
	if err := s.ensureItem(ctx, itemID); err != nil {
		return false, err
	}

	removed, err := s.client.SRem(ctx, keys.UserLikes(userID), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("unlike %s: %w", itemID, err)
	}
	if removed == 0 {
		return false, nil
	}
	if err := s.client.HIncrBy(ctx, keys.Item(itemID), fieldLikes, -1).Err(); err != nil {
		return true, fmt.Errorf("uncount like %s: %w", itemID, err)
	}
	return true, nil
}

func (s *LikeStore) UserLikesItem(ctx context.Context, itemID, userID string) (bool, error) {
	liked, err := s.client.SIsMember(ctx, keys.UserLikes(userID), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("user likes %s: %w", itemID, err)
	}
	return liked, nil
}

func (s *LikeStore) LikedItemIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, keys.UserLikes(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("liked items of %s: %w", userID, err)
	}
	return ids, nil
}

func (s *LikeStore) CommonLikedItemIDs(ctx context.Context, userA, userB string) ([]string, error) {
	ids, err := s.client.SInter(ctx, keys.UserLikes(userA), keys.UserLikes(userB)).Result()
	if err != nil {
		return nil, fmt.Errorf("common likes of %s and %s: %w", userA, userB, err)
	}
	return ids, nil
}

// HINCRBY on a missing hash would create a partial item record.
func (s *LikeStore) ensureItem(ctx context.Context, itemID string) error {
	n, err := s.client.Exists(ctx, keys.Item(itemID)).Result()
	if err != nil {
		return fmt.Errorf("check item %s: %w", itemID, err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
