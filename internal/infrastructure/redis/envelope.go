package redis

import (
	"auction-engine/internal/domain"
	"encoding/json"
	"fmt"
)

// envelope is the wire form of one notification addressed to one recipient.
type envelope struct {
	Recipient    string               `json:"recipient"`
	Notification *domain.Notification `json:"notification"`
}

func encodeEnvelope(recipient string, notification *domain.Notification) (string, error) {
	data, err := json.Marshal(envelope{Recipient: recipient, Notification: notification})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeEnvelope(payload string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}
	if env.Recipient == "" || env.Notification == nil {
		return nil, fmt.Errorf("incomplete notification payload: %s", payload)
	}
	return &env, nil
}
