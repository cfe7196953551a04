package redis

import (
	"context"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type NotificationSubscriber struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

func NewNotificationSubscriber(client *redis.Client, channel string, log logger.Logger) *NotificationSubscriber {
	return &NotificationSubscriber{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// SubscribeToNotifications blocks, feeding every notification on the channel
// to handler until ctx is cancelled.
func (s *NotificationSubscriber) SubscribeToNotifications(ctx context.Context, handler domain.NotificationHandler) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()

	s.log.Info("Subscribed to auction notifications", "channel", s.channel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handleMessage(msg.Payload, handler)

		case <-ctx.Done():
			s.log.Info("Notification subscriber stopped")
			return ctx.Err()
		}
	}
}

func (s *NotificationSubscriber) handleMessage(payload string, handler domain.NotificationHandler) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		s.log.Error("Failed to parse notification", "payload", payload, "error", err)
		return
	}

	if err := handler(env.Recipient, env.Notification); err != nil {
		s.log.Error("Failed to handle notification", "recipient", env.Recipient,
			"event_id", env.Notification.EventID, "error", err)
	}
}
