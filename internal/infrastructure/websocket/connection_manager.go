package websocket

import (
	"encoding/json"
	"sync"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// ConnectionManager tracks one connection per (item, user) watcher.
type ConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // itemID -> userID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		log:         log,
	}
}

// RegisterConnection replaces and closes any previous connection of the same
// user on the same item.
func (cm *ConnectionManager) RegisterConnection(userID, itemID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[itemID] == nil {
		cm.connections[itemID] = make(map[string]domain.WebSocketConnection)
	}
	if previous, exists := cm.connections[itemID][userID]; exists && previous != conn {
		_ = previous.Close()
	}
	cm.connections[itemID][userID] = conn

	cm.log.Debug("Connection registered", "user_id", userID, "item_id", itemID)
	return nil
}

// UnregisterConnection is a no-op when conn has already been replaced by a
// newer connection of the same user.
func (cm *ConnectionManager) UnregisterConnection(userID, itemID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if itemConns, exists := cm.connections[itemID]; exists {
		if itemConns[userID] != conn {
			return nil
		}
		delete(itemConns, userID)
		if len(itemConns) == 0 {
			delete(cm.connections, itemID)
		}
	}

	cm.log.Debug("Connection unregistered", "user_id", userID, "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) CloseAndUnregisterConnections(itemID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for userID, conn := range cm.connections[itemID] {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "user_id", userID,
				"item_id", itemID, "error", err)
		}
	}
	delete(cm.connections, itemID)

	cm.log.Info("Connections closed for item", "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) GetConnectionsForItem(itemID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	connections := make([]domain.WebSocketConnection, 0, len(cm.connections[itemID]))
	for _, conn := range cm.connections[itemID] {
		connections = append(connections, conn)
	}
	return connections
}

// BroadcastToItem sends to every watcher; a failed send does not stop the rest.
func (cm *ConnectionManager) BroadcastToItem(itemID string, message interface{}) error {
	connections := cm.GetConnectionsForItem(itemID)
	if len(connections) == 0 {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range connections {
		if err := conn.Send(json.RawMessage(messageBytes)); err != nil {
			cm.log.Error("Failed to send message", "user_id", conn.UserID(),
				"item_id", itemID, "error", err)
		}
	}

	return nil
}
