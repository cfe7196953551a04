package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

type delivered struct {
	Recipient    string
	Notification domain.Notification
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []delivered
	failFor map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{failFor: map[string]bool{}}
}

// Notify fails on a done context the way a network publisher would.
func (n *recordingNotifier) Notify(ctx context.Context, recipient string, notification *domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n.failFor[recipient] {
		return errors.New("subscriber offline")
	}
	n.sent = append(n.sent, delivered{Recipient: recipient, Notification: *notification})
	return nil
}

func (n *recordingNotifier) ofType(eventType domain.EventType) []delivered {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []delivered
	for _, d := range n.sent {
		if d.Notification.Type == eventType {
			out = append(out, d)
		}
	}
	return out
}

func recipientsOf(ds []delivered) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Recipient)
	}
	return out
}

type recordingRecorder struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
	err    error
}

func (r *recordingRecorder) RecordEvent(_ context.Context, event *domain.AuctionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type engineFixture struct {
	engine   *AuctionEngine
	notifier *recordingNotifier
	recorder *recordingRecorder
	clock    *fakeClock
}

func newEngineFixture() *engineFixture {
	log := logger.NewNop()
	notifier := newRecordingNotifier()
	recorder := &recordingRecorder{}
	clock := newFakeClock()
	dispatcher := NewDispatcher(notifier, recorder, log)

	return &engineFixture{
		engine:   NewAuctionEngine(NewRegistry(), dispatcher, log, WithClock(clock.Now)),
		notifier: notifier,
		recorder: recorder,
		clock:    clock,
	}
}
