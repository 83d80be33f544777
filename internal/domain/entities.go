package domain

import (
	"time"
)

// Item is the auction listing as stored in its hash. Price is the current
// absolute price; the price ranking keeps a running total of bid amounts instead.
type Item struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ImageURL         string    `json:"image_url"`
	OwnerID          string    `json:"owner_id"`
	CreatedAt        time.Time `json:"created_at"`
	EndingAt         time.Time `json:"ending_at"`
	Price            float64   `json:"price"`
	Bids             int64     `json:"bids"`
	HighestBidUserID string    `json:"highest_bid_user_id,omitempty"`
	Views            int64     `json:"views"`
	Likes            int64     `json:"likes"`
}

// Closed reports whether bidding has ended at now.
func (i *Item) Closed(now time.Time) bool {
	return !now.Before(i.EndingAt)
}

type NewItem struct {
	Name          string
	Description   string
	ImageURL      string
	OwnerID       string
	StartingPrice float64
	EndingAt      time.Time
}

type Bid struct {
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// BidTransition is the full set of writes one accepted bid produces.
type BidTransition struct {
	ItemID    string
	UserID    string
	Amount    float64
	CreatedAt time.Time
	Bids      int64
}

type BidEvent struct {
	Type          BidEventType `json:"type"`
	ItemID        string       `json:"item_id"`
	UserID        string       `json:"user_id"`
	Amount        float64      `json:"amount"`
	PreviousPrice float64      `json:"previous_price"`
	Bids          int64        `json:"bids"`
	Timestamp     time.Time    `json:"timestamp"`
}

type BidEventType string

const (
	BidAccepted BidEventType = "bid_accepted"
)

type RankEntry struct {
	ItemID string
	Score  float64
}

type RankedItem struct {
	Item  *Item   `json:"item"`
	Score float64 `json:"score"`
}

// ReconcileOutcome describes what one reconcile pass changed for an item.
type ReconcileOutcome struct {
	Removed     bool
	ViewsFixed  bool
	EndingFixed bool
	PriceFixed  bool
}

func (o ReconcileOutcome) Changed() bool {
	return o.Removed || o.ViewsFixed || o.EndingFixed || o.PriceFixed
}

type ReconcileReport struct {
	Checked     int
	Removed     int
	ViewsFixed  int
	EndingFixed int
	PriceFixed  int
	Failed      int
}
