package domain

import (
	"context"
	"time"
)

// Lease is handed to a critical section while it holds a lock. Expired turns
// true once the lock TTL has elapsed; after that the holder must not write.
type Lease interface {
	Expired() bool
	Err() error
	Deadline() time.Time
}

type CriticalSection func(ctx context.Context, lease Lease) error

type Locker interface {
	WithLock(ctx context.Context, resource string, fn CriticalSection) error
}

// Store interfaces
type ItemStore interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	GetItems(ctx context.Context, ids []string) ([]*Item, error)
	CreateItem(ctx context.Context, item *Item) error
}

type BidStore interface {
	ApplyBid(ctx context.Context, t BidTransition) error
	GetBidHistory(ctx context.Context, itemID string, offset, count int) ([]Bid, error)
}

type ViewCounter interface {
	IncrementView(ctx context.Context, itemID, userID string) (bool, error)
}

type LikeStore interface {
	AddLike(ctx context.Context, itemID, userID string) (bool, error)
	RemoveLike(ctx context.Context, itemID, userID string) (bool, error)
	UserLikesItem(ctx context.Context, itemID, userID string) (bool, error)
	LikedItemIDs(ctx context.Context, userID string) ([]string, error)
	CommonLikedItemIDs(ctx context.Context, userA, userB string) ([]string, error)
}

type RankingStore interface {
	TopByPrice(ctx context.Context, limit int) ([]RankEntry, error)
	TopByViews(ctx context.Context, limit int) ([]RankEntry, error)
	EndingSoonest(ctx context.Context, now time.Time, offset, count int) ([]RankEntry, error)
}

type RankingRepairer interface {
	IndexedItemIDs(ctx context.Context, offset, count int) ([]string, error)
	ReconcileItem(ctx context.Context, itemID string) (ReconcileOutcome, error)
}

type BidArchive interface {
	SaveBidEvent(ctx context.Context, event *BidEvent) error
	ListBidEvents(ctx context.Context, itemID string, limit int) ([]*BidEvent, error)
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(ctx context.Context, event *BidEvent) error

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

type ItemBroadcaster interface {
	BroadcastToItem(ctx context.Context, itemID string, message interface{}) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	ItemID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, itemID string, conn WebSocketConnection) error
	UnregisterConnection(userID, itemID string, conn WebSocketConnection) error
	GetConnectionsForItem(itemID string) []WebSocketConnection
	BroadcastToItem(itemID string, message interface{}) error
	CloseAndUnregisterConnections(itemID string) error
}
