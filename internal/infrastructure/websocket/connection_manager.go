package websocket

import (
	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"sync"
)

// ConnectionManager tracks live websocket connections per identity. An
// identity may hold several connections (tabs, devices).
type ConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // identity -> connID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	identity := conn.Identity()
	if cm.connections[identity] == nil {
		cm.connections[identity] = make(map[string]domain.WebSocketConnection)
	}
	cm.connections[identity][conn.ID()] = conn

	cm.log.Info("Connection registered", "identity", identity, "conn_id", conn.ID())
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	identity := conn.Identity()
	if conns, exists := cm.connections[identity]; exists {
		delete(conns, conn.ID())
		if len(conns) == 0 {
			delete(cm.connections, identity)
		}
	}

	cm.log.Info("Connection unregistered", "identity", identity, "conn_id", conn.ID())
	return nil
}

func (cm *ConnectionManager) GetConnectionsForIdentity(identity string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.WebSocketConnection
	for _, conn := range cm.connections[identity] {
		connections = append(connections, conn)
	}
	return connections
}

// NotifyUser sends message to every connection of identity. An identity with
// no live connection is not an error.
func (cm *ConnectionManager) NotifyUser(identity string, message interface{}) error {
	connections := cm.GetConnectionsForIdentity(identity)
	if len(connections) == 0 {
		cm.log.Debug("No live connection for recipient", "identity", identity)
		return nil
	}

	for _, conn := range connections {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "identity", identity, "conn_id", conn.ID(), "error", err)
			// Continue to other connections
		}
	}
	return nil
}

func (cm *ConnectionManager) CloseAll() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for identity, conns := range cm.connections {
		for id, conn := range conns {
			if err := conn.Close(); err != nil {
				cm.log.Error("Failed to close connection", "identity", identity, "conn_id", id, "error", err)
			}
		}
	}
	cm.connections = make(map[string]map[string]domain.WebSocketConnection)

	cm.log.Info("All connections closed")
	return nil
}
