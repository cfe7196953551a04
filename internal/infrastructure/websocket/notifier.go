package websocket

import (
	"auction-engine/internal/domain"
	"context"
)

type WebSocketNotifier struct {
	connManager domain.ConnectionManager
}

func NewWebSocketNotifier(connManager domain.ConnectionManager) *WebSocketNotifier {
	return &WebSocketNotifier{connManager: connManager}
}

func (n *WebSocketNotifier) Notify(ctx context.Context, recipient string, notification *domain.Notification) error {
	return n.connManager.NotifyUser(recipient, notification)
}
