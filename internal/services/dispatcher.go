package services

import (
	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"context"
)

// Dispatcher records an event and delivers it to each of its recipients.
// Delivery is best effort: failures are logged and never returned.
type Dispatcher struct {
	notifier domain.Notifier
	recorder domain.EventRecorder
	log      logger.Logger
}

func NewDispatcher(notifier domain.Notifier, recorder domain.EventRecorder, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		recorder: recorder,
		log:      log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.AuctionEvent) {
	if d.recorder != nil {
		if err := d.recorder.RecordEvent(ctx, event); err != nil {
			d.log.Error("Failed to record event", "event_id", event.ID, "type", event.Type, "error", err)
		}
	}

	if d.notifier == nil {
		return
	}

	notification := event.Notification()
	for _, recipient := range event.Recipients {
		if err := d.notifier.Notify(ctx, recipient, notification); err != nil {
			d.log.Error("Failed to notify recipient", "recipient", recipient,
				"event_id", event.ID, "type", event.Type, "error", err)
			// Continue to other recipients
		}
	}
}
