package redis

import (
	"errors"
	"testing"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	notification := &domain.Notification{
		EventID:   "evt-9",
		Type:      domain.LotFinalized,
		LotCode:   "L1",
		Message:   "Lot L1 (Vase) closed. Winner: bob with 150.00",
		Timestamp: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	payload, err := encodeEnvelope("alice", notification)
	require.NoError(t, err)

	env, err := decodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, "alice", env.Recipient)
	assert.Equal(t, notification.Message, env.Notification.Message)
	assert.True(t, notification.Timestamp.Equal(env.Notification.Timestamp))

	_, err = decodeEnvelope("L1:new_bid:bob:150")
	assert.Error(t, err)

	_, err = decodeEnvelope(`{"recipient":"alice"}`)
	assert.Error(t, err)
}

func TestNotificationSubscriber_HandleMessage(t *testing.T) {
	sub := NewNotificationSubscriber(nil, "auction_notifications", logger.NewNop())
	payload, err := encodeEnvelope("bob", &domain.Notification{EventID: "evt-1", Type: domain.NewBid})
	require.NoError(t, err)

	var got []string
	handler := func(recipient string, n *domain.Notification) error {
		got = append(got, recipient+":"+string(n.Type))
		return errors.New("socket closed")
	}

	sub.handleMessage(payload, handler)
	sub.handleMessage("garbage", handler)

	assert.Equal(t, []string{"bob:new_bid"}, got)
}
