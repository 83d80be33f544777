package domain

import "errors"

var (
	ErrLockUnavailable = errors.New("lock unavailable")
	ErrLockExpired     = errors.New("lock expired")
	ErrItemNotFound    = errors.New("item not found")
	ErrBidTooLow       = errors.New("bid too low")
	ErrAuctionClosed   = errors.New("item closed to bidding")
	ErrInvalidItem     = errors.New("invalid item")
	ErrInvalidBid      = errors.New("invalid bid")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Retryable reports whether the caller may safely retry the whole operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrLockUnavailable) || errors.Is(err, ErrLockExpired)
}

// Stable machine-readable codes for API and websocket replies.
const (
	CodeItemNotFound    = "item_not_found"
	CodeBidTooLow       = "bid_too_low"
	CodeAuctionClosed   = "auction_closed"
	CodeLockUnavailable = "lock_unavailable"
	CodeLockExpired     = "lock_expired"
	CodeInvalidRequest  = "invalid_request"
	CodeInternal        = "internal_error"
)

func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return CodeItemNotFound
	case errors.Is(err, ErrBidTooLow):
		return CodeBidTooLow
	case errors.Is(err, ErrAuctionClosed):
		return CodeAuctionClosed
	case errors.Is(err, ErrLockUnavailable):
		return CodeLockUnavailable
	case errors.Is(err, ErrLockExpired):
		return CodeLockExpired
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidBid), errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}
