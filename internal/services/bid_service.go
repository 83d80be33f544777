package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"auction-house/internal/clock"
	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

const publishTimeout = 2 * time.Second

// BidService places bids. Every write to price, bid count or highest bidder
// goes through PlaceBid and therefore through the per-item lock.
type BidService struct {
	locker    domain.Locker
	items     domain.ItemStore
	bids      domain.BidStore
	publisher domain.EventPublisher
	clock     clock.Clock
	log       logger.Logger
}

func NewBidService(
	locker domain.Locker,
	items domain.ItemStore,
	bids domain.BidStore,
	publisher domain.EventPublisher,
	clk clock.Clock,
	log logger.Logger,
) *BidService {
	return &BidService{
		locker:    locker,
		items:     items,
		bids:      bids,
		publisher: publisher,
		clock:     clk,
		log:       log,
	}
}

func (s *BidService) PlaceBid(ctx context.Context, itemID, userID string, amount float64, submittedAt time.Time) error {
	if itemID == "" || userID == "" {
		return fmt.Errorf("%w: item and user are required", domain.ErrInvalidBid)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive number", domain.ErrInvalidBid)
	}

	var event *domain.BidEvent
	err := s.locker.WithLock(ctx, itemID, func(ctx context.Context, lease domain.Lease) error {
		// Read only after acquisition; a pre-lock read may be stale.
		item, err := s.items.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if amount < item.Price {
			return domain.ErrBidTooLow
		}
		if item.Closed(s.clock.Now()) {
			return domain.ErrAuctionClosed
		}

		if err := lease.Err(); err != nil {
			return err
		}

		transition := domain.BidTransition{
			ItemID:    itemID,
			UserID:    userID,
			Amount:    amount,
			CreatedAt: submittedAt,
			Bids:      item.Bids + 1,
		}
		if err := s.bids.ApplyBid(ctx, transition); err != nil {
			return err
		}

		event = &domain.BidEvent{
			Type:          domain.BidAccepted,
			ItemID:        itemID,
			UserID:        userID,
			Amount:        amount,
			PreviousPrice: item.Price,
			Bids:          transition.Bids,
			Timestamp:     submittedAt,
		}
		return nil
	})
	if err != nil {
		s.log.Info("Bid rejected", "item_id", itemID, "user_id", userID, "amount", amount, "error", err)
		return err
	}

	s.log.Info("Bid accepted", "item_id", itemID, "user_id", userID, "amount", amount, "bids", event.Bids)
	s.publish(ctx, event)
	return nil
}

// The bid is committed by now; a lost event only delays watchers and the archive.
func (s *BidService) publish(ctx context.Context, event *domain.BidEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishBidEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish bid event", "item_id", event.ItemID, "error", err)
	}
}

func (s *BidService) GetBidHistory(ctx context.Context, itemID string, offset, count int) ([]domain.Bid, error) {
	return s.bids.GetBidHistory(ctx, itemID, offset, count)
}
