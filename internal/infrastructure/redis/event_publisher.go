package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/internal/keys"

	"github.com/go-redis/redis/v8"
)

type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal bid event: %w", err)
	}
	return p.client.Publish(ctx, keys.BidEventsChannel, payload).Err()
}
