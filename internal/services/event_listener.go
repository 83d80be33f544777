package services

import (
	"context"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// BidUpdate is what websocket watchers of an item receive after each accepted bid.
type BidUpdate struct {
	Type             string  `json:"type"`
	ItemID           string  `json:"item_id"`
	Price            float64 `json:"price"`
	PreviousPrice    float64 `json:"previous_price"`
	Bids             int64   `json:"bids"`
	HighestBidUserID string  `json:"highest_bid_user_id"`
	Timestamp        int64   `json:"timestamp"`
}

const MessageBidUpdate = "bid_update"

// EventListener relays bid events from the bus to local websocket watchers.
type EventListener struct {
	broadcaster domain.ItemBroadcaster
	log         logger.Logger
}

func NewEventListener(broadcaster domain.ItemBroadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster: broadcaster,
		log:         log,
	}
}

// Start blocks until ctx ends or the subscription fails.
func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToBidEvents(ctx, el.handleBidEvent)
}

func (el *EventListener) handleBidEvent(ctx context.Context, event *domain.BidEvent) error {
	el.log.Debug("Handling bid event", "type", event.Type, "item_id", event.ItemID)

	switch event.Type {
	case domain.BidAccepted:
		return el.broadcaster.BroadcastToItem(ctx, event.ItemID, BidUpdate{
			Type:             MessageBidUpdate,
			ItemID:           event.ItemID,
			Price:            event.Amount,
			PreviousPrice:    event.PreviousPrice,
			Bids:             event.Bids,
			HighestBidUserID: event.UserID,
			Timestamp:        event.Timestamp.UnixMilli(),
		})
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}
