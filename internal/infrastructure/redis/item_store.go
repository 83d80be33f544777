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

// Item hash fields.
const (
	fieldName             = "name"
	fieldDescription      = "description"
	fieldImageURL         = "imageUrl"
	fieldOwnerID          = "ownerId"
	fieldCreatedAt        = "createdAt"
	fieldEndingAt         = "endingAt"
	fieldPrice            = "price"
	fieldBids             = "bids"
	fieldHighestBidUserID = "highestBidUserId"
	fieldViews            = "views"
	fieldLikes            = "likes"
)

type ItemStore struct {
	client *redis.Client
}

func NewItemStore(client *redis.Client) *ItemStore {
	return &ItemStore{client: client}
}

func (s *ItemStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	fields, err := s.client.HGetAll(ctx, keys.Item(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrItemNotFound
	}
	return deserializeItem(id, fields)
}

// GetItems keeps the order of ids; absent items come back as nil entries.
func (s *ItemStore) GetItems(ctx context.Context, ids []string) ([]*domain.Item, error) {
	if len(ids) == 0 {
		return []*domain.Item{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keys.Item(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	items := make([]*domain.Item, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		item, err := deserializeItem(ids[i], fields)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// CreateItem writes the hash and seeds all three rankings in one transaction.
func (s *ItemStore) CreateItem(ctx context.Context, item *domain.Item) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keys.Item(item.ID), serializeItem(item))
		pipe.ZAdd(ctx, keys.ItemsByViews(), &redis.Z{Member: item.ID, Score: float64(item.Views)})
		pipe.ZAdd(ctx, keys.ItemsByEndingAt(), &redis.Z{Member: item.ID, Score: float64(item.EndingAt.UnixMilli())})
		pipe.ZAdd(ctx, keys.ItemsByPrice(), &redis.Z{Member: item.ID, Score: 0})
		return nil
	})
	if err != nil {
		return fmt.Errorf("create item %s: %w", item.ID, err)
	}
	return nil
}

func serializeItem(item *domain.Item) map[string]interface{} {
	return map[string]interface{}{
		fieldName:             item.Name,
		fieldDescription:      item.Description,
		fieldImageURL:         item.ImageURL,
		fieldOwnerID:          item.OwnerID,
		fieldCreatedAt:        item.CreatedAt.UnixMilli(),
		fieldEndingAt:         item.EndingAt.UnixMilli(),
		fieldPrice:            formatAmount(item.Price),
		fieldBids:             item.Bids,
		fieldHighestBidUserID: item.HighestBidUserID,
		fieldViews:            item.Views,
		fieldLikes:            item.Likes,
	}
}

func deserializeItem(id string, fields map[string]string) (*domain.Item, error) {
	item := &domain.Item{
		ID:               id,
		Name:             fields[fieldName],
		Description:      fields[fieldDescription],
		ImageURL:         fields[fieldImageURL],
		OwnerID:          fields[fieldOwnerID],
		HighestBidUserID: fields[fieldHighestBidUserID],
	}

	var err error
	if item.CreatedAt, err = parseMillis(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("item %s %s: %w", id, fieldCreatedAt, err)
	}
	if item.EndingAt, err = parseMillis(fields[fieldEndingAt]); err != nil {
		return nil, fmt.Errorf("item %s %s: %w", id, fieldEndingAt, err)
	}
	if item.Price, err = parseFloat(fields[fieldPrice]); err != nil {
		return nil, fmt.Errorf("item %s %s: %w", id, fieldPrice, err)
	}
	if item.Bids, err = parseInt(fields[fieldBids]); err != nil {
		return nil, fmt.Errorf("item %s %s: %w", id, fieldBids, err)
	}
	if item.Views, err = parseInt(fields[fieldViews]); err != nil {
		return nil, fmt.Errorf("item %s %s: %w", id, fieldViews, err)
	}
	if item.Likes, err = parseInt(fields[fieldLikes]); err != nil {
		return nil, fmt.Errorf("item %s %s: %w", id, fieldLikes, err)
	}
	return item, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Missing numeric fields read as zero.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseMillis(s string) (time.Time, error) {
	ms, err := parseInt(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
