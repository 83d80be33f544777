package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"auction-house/internal/clock"
	"auction-house/internal/domain"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

// ItemService covers everything about an item except bidding: listing,
// views, likes and rankings. None of it takes the item lock.
type ItemService struct {
	items    domain.ItemStore
	views    domain.ViewCounter
	likes    domain.LikeStore
	rankings domain.RankingStore
	clock    clock.Clock
	log      logger.Logger
}

func NewItemService(
	items domain.ItemStore,
	views domain.ViewCounter,
	likes domain.LikeStore,
	rankings domain.RankingStore,
	clk clock.Clock,
	log logger.Logger,
) *ItemService {
	return &ItemService{
		items:    items,
		views:    views,
		likes:    likes,
		rankings: rankings,
		clock:    clk,
		log:      log,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, req domain.NewItem) (*domain.Item, error) {
	now := s.clock.Now()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidItem)
	}
	if !req.EndingAt.After(now) {
		return nil, fmt.Errorf("%w: ending time must be in the future", domain.ErrInvalidItem)
	}
	if req.StartingPrice < 0 || math.IsNaN(req.StartingPrice) || math.IsInf(req.StartingPrice, 0) {
		return nil, fmt.Errorf("%w: starting price must be a non-negative number", domain.ErrInvalidItem)
	}

	item := &domain.Item{
		ID:          utils.GenerateID(""),
		Name:        name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		OwnerID:     req.OwnerID,
		CreatedAt:   now,
		EndingAt:    req.EndingAt.UTC(),
		Price:       req.StartingPrice,
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.log.Info("Item created", "item_id", item.ID, "owner_id", item.OwnerID, "ending_at", item.EndingAt)
	return item, nil
}

func (s *ItemService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.items.GetItem(ctx, id)
}

// GetItems drops ids that have no item.
func (s *ItemService) GetItems(ctx context.Context, ids []string) ([]*domain.Item, error) {
	found, err := s.items.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]*domain.Item, 0, len(found))
	for _, item := range found {
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

// RecordView counts at most one view per user and item.
func (s *ItemService) RecordView(ctx context.Context, itemID, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user is required", domain.ErrInvalidRequest)
	}
	counted, err := s.views.IncrementView(ctx, itemID, userID)
	if err != nil {
		return false, err
	}
	if counted {
		s.log.Debug("View counted", "item_id", itemID, "user_id", userID)
	}
	return counted, nil
}

func (s *ItemService) Like(ctx context.Context, itemID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", domain.ErrInvalidRequest)
	}
	_, err := s.likes.AddLike(ctx, itemID, userID)
	return err
}

func (s *ItemService) Unlike(ctx context.Context, itemID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", domain.ErrInvalidRequest)
	}
	_, err := s.likes.RemoveLike(ctx, itemID, userID)
	return err
}

func (s *ItemService) UserLikesItem(ctx context.Context, itemID, userID string) (bool, error) {
	return s.likes.UserLikesItem(ctx, itemID, userID)
}

func (s *ItemService) LikedItems(ctx context.Context, userID string) ([]*domain.Item, error) {
	ids, err := s.likes.LikedItemIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GetItems(ctx, ids)
}

func (s *ItemService) CommonLikedItems(ctx context.Context, userA, userB string) ([]*domain.Item, error) {
	ids, err := s.likes.CommonLikedItemIDs(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	return s.GetItems(ctx, ids)
}

func (s *ItemService) TopByPrice(ctx context.Context, limit int) ([]domain.RankedItem, error) {
	entries, err := s.rankings.TopByPrice(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entries)
}

func (s *ItemService) TopByViews(ctx context.Context, limit int) ([]domain.RankedItem, error) {
	entries, err := s.rankings.TopByViews(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entries)
}

func (s *ItemService) EndingSoonest(ctx context.Context, offset, count int) ([]domain.RankedItem, error) {
	entries, err := s.rankings.EndingSoonest(ctx, s.clock.Now(), offset, count)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entries)
}

// resolve keeps ranking order and skips entries whose item is gone; the
// reconciler removes those from the index later.
func (s *ItemService) resolve(ctx context.Context, entries []domain.RankEntry) ([]domain.RankedItem, error) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ItemID
	}
	items, err := s.items.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedItem, 0, len(entries))
	for i, item := range items {
		if item == nil {
			s.log.Debug("Ranking entry without item", "item_id", ids[i])
			continue
		}
		ranked = append(ranked, domain.RankedItem{Item: item, Score: entries[i].Score})
	}
	return ranked, nil
}
