package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"auction-house/internal/clock"
	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	bidTimeout   = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BidPlacer is the part of the bid service the socket needs.
type BidPlacer interface {
	PlaceBid(ctx context.Context, itemID, userID string, amount float64, submittedAt time.Time) error
}

type inboundMessage struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

type BidRejected struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	MessagePing          = "ping"
	MessagePong          = "pong"
	MessagePlaceBid      = "place_bid"
	MessageBidRejected   = "bid_rejected"
	MessageAuctionClosed = "auction_closed"
)

type WebSocketHandler struct {
	bids        BidPlacer
	items       domain.ItemStore
	connManager domain.ConnectionManager
	clock       clock.Clock
	log         logger.Logger
}

func NewWebSocketHandler(bids BidPlacer, items domain.ItemStore, connManager domain.ConnectionManager,
	clk clock.Clock, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		bids:        bids,
		items:       items,
		connManager: connManager,
		clock:       clk,
		log:         log,
	}
}

// HandleConnection serves GET /ws/items/{itemID}?user_id=.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemID"]

	item, err := h.items.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to load item", "item_id", itemID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if item.Closed(h.clock.Now()) {
		h.log.Info("Rejected connection - item closed to bidding", "item_id", itemID)
		http.Error(w, "item closed to bidding", http.StatusForbidden)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, userID, itemID)
	if err := h.connManager.RegisterConnection(userID, itemID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		_ = wsConn.Close()
		return
	}

	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		_ = h.connManager.UnregisterConnection(conn.UserID(), conn.ItemID(), conn)
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Error("Failed to read message", "user_id", conn.UserID(), "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("Ignoring malformed message", "user_id", conn.UserID(), "error", err)
			continue
		}

		switch msg.Type {
		case MessagePlaceBid:
			h.handleBidMessage(conn, msg)
		case MessagePing:
			_ = conn.Send(map[string]string{"type": MessagePong})
		}
	}
}

func (h *WebSocketHandler) handleBidMessage(conn *WebSocketConnection, msg inboundMessage) {
	amount, err := strconv.ParseFloat(msg.Amount, 64)
	if err != nil {
		h.reject(conn, domain.ErrInvalidBid)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), bidTimeout)
	defer cancel()

	err = h.bids.PlaceBid(ctx, conn.ItemID(), conn.UserID(), amount, h.clock.Now())
	if err == nil {
		return
	}
	h.reject(conn, err)
	if errors.Is(err, domain.ErrAuctionClosed) {
		h.closeItem(conn.ItemID())
	}
}

// closeItem tells every watcher the item closed and drops their connections.
func (h *WebSocketHandler) closeItem(itemID string) {
	if err := h.connManager.BroadcastToItem(itemID, map[string]string{"type": MessageAuctionClosed}); err != nil {
		h.log.Error("Failed to broadcast item closed", "item_id", itemID, "error", err)
	}
	if err := h.connManager.CloseAndUnregisterConnections(itemID); err != nil {
		h.log.Error("Failed to close connections for item", "item_id", itemID, "error", err)
	}
}

func (h *WebSocketHandler) reject(conn *WebSocketConnection, err error) {
	if sendErr := conn.Send(BidRejected{
		Type:    MessageBidRejected,
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	}); sendErr != nil {
		h.log.Error("Failed to send rejection", "user_id", conn.UserID(), "error", sendErr)
	}
}

// WebSocketConnection serializes writes; gorilla allows one concurrent writer.
type WebSocketConnection struct {
	conn   *websocket.Conn
	userID string
	itemID string

	writeMu sync.Mutex
}

func NewWebSocketConnection(conn *websocket.Conn, userID, itemID string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:   conn,
		userID: userID,
		itemID: itemID,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	_ = wsc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}

func (wsc *WebSocketConnection) ItemID() string {
	return wsc.itemID
}
