package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-house/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// Schema:
//
//	CREATE TABLE bid_events (
//	    id             BIGINT AUTO_INCREMENT PRIMARY KEY,
//	    item_id        VARCHAR(64)    NOT NULL,
//	    user_id        VARCHAR(64)    NOT NULL,
//	    amount         DECIMAL(18, 2) NOT NULL,
//	    previous_price DECIMAL(18, 2) NOT NULL,
//	    bids           BIGINT         NOT NULL,
//	    event_type     VARCHAR(32)    NOT NULL,
//	    timestamp      DATETIME(3)    NOT NULL,
//	    created_at     DATETIME(3)    NOT NULL,
//	    INDEX idx_bid_events_item (item_id, timestamp)
//	);
type BidArchive struct {
	db  *sql.DB
	now func() time.Time
}

func NewBidArchive(db *sql.DB) *BidArchive {
	return &BidArchive{db: db, now: time.Now}
}

func (r *BidArchive) SaveBidEvent(ctx context.Context, event *domain.BidEvent) error {
	query := `
        INSERT INTO bid_events (item_id, user_id, amount, previous_price, bids, event_type, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.ItemID, event.UserID, event.Amount, event.PreviousPrice,
		event.Bids, string(event.Type), event.Timestamp, r.now().UTC())
	if err != nil {
		return fmt.Errorf("archive bid on %s: %w", event.ItemID, err)
	}
	return nil
}

// ListBidEvents returns the newest accepted bids for an item first.
func (r *BidArchive) ListBidEvents(ctx context.Context, itemID string, limit int) ([]*domain.BidEvent, error) {
	query := `
        SELECT item_id, user_id, amount, previous_price, bids, event_type, timestamp
        FROM bid_events
        WHERE item_id = ? AND event_type = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, itemID, string(domain.BidAccepted), limit)
	if err != nil {
		return nil, fmt.Errorf("list archived bids for %s: %w", itemID, err)
	}
	defer rows.Close()

	var events []*domain.BidEvent
	for rows.Next() {
		var event domain.BidEvent
		var eventType string

		err := rows.Scan(&event.ItemID, &event.UserID, &event.Amount,
			&event.PreviousPrice, &event.Bids, &eventType, &event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.Type = domain.BidEventType(eventType)
		events = append(events, &event)
	}

	return events, rows.Err()
}
