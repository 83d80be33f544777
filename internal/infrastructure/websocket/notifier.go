package websocket

import (
	"context"

	"auction-house/internal/domain"
)

type Broadcaster struct {
	connManager domain.ConnectionManager
}

func NewBroadcaster(connManager domain.ConnectionManager) *Broadcaster {
	return &Broadcaster{connManager: connManager}
}

func (b *Broadcaster) BroadcastToItem(ctx context.Context, itemID string, message interface{}) error {
	return b.connManager.BroadcastToItem(itemID, message)
}
