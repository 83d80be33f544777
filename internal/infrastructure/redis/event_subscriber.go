package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/internal/keys"
	"auction-house/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type EventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *EventSubscriber {
	return &EventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToBidEvents blocks, feeding every decodable event to handler until
// ctx is done. Handler errors are logged and do not stop the loop.
func (s *EventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, keys.BidEventsChannel)
	defer pubsub.Close()

	// Wait for the subscription confirmation so no event published after
	// this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", keys.BidEventsChannel, err)
	}

	ch := pubsub.Channel()
	s.log.Info("Subscribed to bid events", "channel", keys.BidEventsChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := parseEvent(msg.Payload)
			if err != nil {
				s.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(ctx, event); err != nil {
				s.log.Error("Failed to handle event", "item_id", event.ItemID, "type", event.Type, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

func parseEvent(payload string) (*domain.BidEvent, error) {
	var event domain.BidEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.ItemID == "" {
		return nil, fmt.Errorf("event without item id")
	}
	return &event, nil
}
