// Package keys maps entities to Redis key names. Every key the services touch
// is built here so the persisted layout has one owner.
package keys

const BidEventsChannel = "bid_events"

func Item(id string) string {
	return "items#" + id
}

// BidHistory is the append-only list of "amount:createdAtMillis" entries.
func BidHistory(itemID string) string {
	return "history#" + itemID
}

// ItemViews is the per-item HyperLogLog of users whose view was counted.
func ItemViews(itemID string) string {
	return "items:views#" + itemID
}

func UserLikes(userID string) string {
	return "users:likes#" + userID
}

func ItemsByPrice() string {
	return "items:price"
}

func ItemsByViews() string {
	return "items:views"
}

func ItemsByEndingAt() string {
	return "items:endingAt"
}

func Lock(resource string) string {
	return "lock:" + resource
}

func ReconcilerLeader() string {
	return "reconciler:leader"
}
