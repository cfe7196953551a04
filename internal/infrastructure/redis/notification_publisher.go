package redis

import (
	"auction-engine/internal/domain"
	"context"

	"github.com/go-redis/redis/v8"
)

// NotificationPublisher hands notifications to the websocket gateway over Redis pub/sub.
type NotificationPublisher struct {
	client  *redis.Client
	channel string
}

func NewNotificationPublisher(client *redis.Client, channel string) *NotificationPublisher {
	return &NotificationPublisher{client: client, channel: channel}
}

func (p *NotificationPublisher) Notify(ctx context.Context, recipient string, notification *domain.Notification) error {
	payload, err := encodeEnvelope(recipient, notification)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, p.channel, payload).Err()
}
