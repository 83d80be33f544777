package services

import (
	"context"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// Archiver copies accepted bids from the bus into the long-term archive.
type Archiver struct {
	archive domain.BidArchive
	log     logger.Logger
}

func NewArchiver(archive domain.BidArchive, log logger.Logger) *Archiver {
	return &Archiver{
		archive: archive,
		log:     log,
	}
}

func (a *Archiver) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	a.log.Info("Starting bid archiver")
	return subscriber.SubscribeToBidEvents(ctx, a.handleBidEvent)
}

func (a *Archiver) handleBidEvent(ctx context.Context, event *domain.BidEvent) error {
	// Only accepted bids are archived
	if event.Type != domain.BidAccepted {
		return nil
	}
	a.log.Info("Storing bid event", "item_id", event.ItemID, "user_id", event.UserID, "amount", event.Amount)
	return a.archive.SaveBidEvent(ctx, event)
}

// RecentBids lists the newest archived bids of an item.
func (a *Archiver) RecentBids(ctx context.Context, itemID string, limit int) ([]*domain.BidEvent, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item is required", domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		return []*domain.BidEvent{}, nil
	}
	events, err := a.archive.ListBidEvents(ctx, itemID, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.BidEvent{}
	}
	return events, nil
}
