package domain

import (
	"context"
)

// Notification interfaces
type Notifier interface {
	Notify(ctx context.Context, recipient string, notification *Notification) error
}

type NotificationHandler func(recipient string, notification *Notification) error

type NotificationSubscriber interface {
	SubscribeToNotifications(ctx context.Context, handler NotificationHandler) error
}

// Repository interfaces
type EventRecorder interface {
	RecordEvent(ctx context.Context, event *AuctionEvent) error
}

type EventHistory interface {
	GetLotHistory(ctx context.Context, lotCode string) ([]*AuctionEvent, error)
}

// ExpiredLotFinalizer closes every lot whose closing time has passed and
// returns what was finalized. Implemented in-process by the engine and over
// HTTP for a detached sweeper.
type ExpiredLotFinalizer interface {
	FinalizeExpired(ctx context.Context) ([]LotSnapshot, error)
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	ID() string
	Identity() string
}

type ConnectionManager interface {
	RegisterConnection(conn WebSocketConnection) error
	UnregisterConnection(conn WebSocketConnection) error
	GetConnectionsForIdentity(identity string) []WebSocketConnection
	NotifyUser(identity string, message interface{}) error
	CloseAll() error
}
